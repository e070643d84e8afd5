package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chapterhub/chapterhub/handlers"
	"github.com/chapterhub/chapterhub/internal/auth"
	"github.com/chapterhub/chapterhub/internal/config"
	"github.com/chapterhub/chapterhub/internal/database"
	"github.com/chapterhub/chapterhub/internal/members"
	"github.com/chapterhub/chapterhub/internal/revocation"
	"github.com/chapterhub/chapterhub/internal/tokens"
	"github.com/chapterhub/chapterhub/pkg/logger"
	"github.com/chapterhub/chapterhub/pkg/metrics"
	"github.com/chapterhub/chapterhub/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging level is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v jwt_secret_set=%v admin_secret_set=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.JWT.Secret != "", cfg.Admin.Secret != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	ctx := context.Background()

	// Connect to Redis early: it backs the revocation ledger and the
	// distributed rate limiter when configured.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Connect to MongoDB with retry/backoff to tolerate startup races
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
			mongoClient = nil
		}
	}
	if mongoClient != nil {
		defer func() { _ = mongoClient.Disconnect(ctx) }()
	}

	codec := tokens.NewCodec(cfg.JWT)

	// Ledger: prefer Redis (fast, TTL-native); fall back to Mongo.
	var ledger revocation.Ledger
	if redisClient != nil {
		ledger = revocation.NewRedisLedger(redisClient, "revoked:")
		logger.Infof("using Redis for the revocation ledger")
	} else if mongoClient != nil {
		ledger = revocation.NewMongoLedger(mongoClient.Database(cfg.MongoDB.Database).Collection("revocations"))
		logger.Infof("using MongoDB for the revocation ledger")
	}

	var membersSvc *members.Service
	var authSvc *auth.Service
	if mongoClient != nil {
		db := mongoClient.Database(cfg.MongoDB.Database)
		if err := database.EnsureIndexes(ctx, db); err != nil {
			logger.Warnf("failed to ensure indexes: %v", err)
		}
		membersSvc = members.NewService(members.NewMongoRepository(db.Collection("members")))
	}
	if membersSvc != nil && ledger != nil {
		authSvc = auth.NewService(codec, membersSvc, ledger)
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when the credential subsystem can actually work
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"members": membersSvc != nil,
			"ledger":  ledger != nil,
			"jwt":     cfg.JWT.Secret != "",
		}
		ready := deps["members"] && deps["ledger"] && deps["jwt"]
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	if authSvc != nil {
		h := handlers.NewAuthHandler(cfg, membersSvc, authSvc)
		h.Register(r.Group("/"))
	} else {
		logger.Warnf("auth handlers not registered because member/ledger services are unavailable")
	}

	api := r.Group("/api/v1")
	if membersSvc != nil {
		api.GET("/me", middleware.RequireMemberStrict(codec, ledger), func(c *gin.Context) {
			id := c.GetString(middleware.MemberIDKey)
			m, err := membersSvc.GetByID(c.Request.Context(), id)
			if err != nil || m == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "member_not_found", "message": "member not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"member": m})
		})
	}

	// manual sweep trigger behind the static admin gate; the ticker below
	// covers the scheduled path
	admin := r.Group("/admin", middleware.RequireAdmin(cfg.Admin.Secret))
	admin.POST("/revocations/sweep", func(c *gin.Context) {
		if ledger == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "internal", "message": "ledger unavailable"})
			return
		}
		n, err := ledger.SweepExpired(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "sweep failed"})
			return
		}
		metrics.RevocationsSwept.Add(float64(n))
		c.JSON(http.StatusOK, gin.H{"deleted": n})
	})

	if ledger != nil {
		go runSweeper(ctx, ledger, config.SweepInterval)
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting membership auth service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

// runSweeper purges expired revocation entries on a fixed interval so the
// ledger never outgrows the tokens it shadows by more than one period.
func runSweeper(ctx context.Context, ledger revocation.Ledger, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := ledger.SweepExpired(ctx)
			if err != nil {
				logger.Warnf("revocation sweep failed: %v", err)
				continue
			}
			if n > 0 {
				metrics.RevocationsSwept.Add(float64(n))
				logger.Infof("revocation sweep removed %d expired entries", n)
			}
		}
	}
}
