package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chapterhub/chapterhub/internal/auth"
	"github.com/chapterhub/chapterhub/internal/config"
	"github.com/chapterhub/chapterhub/internal/members"
	"github.com/chapterhub/chapterhub/internal/models"
	"github.com/chapterhub/chapterhub/internal/revocation"
	"github.com/chapterhub/chapterhub/internal/tokens"
)

// fake member repo
type fakeMemberRepo struct {
	byID    map[string]*models.Member
	byEmail map[string]*models.Member
}

func newFakeMemberRepo(ms ...*models.Member) *fakeMemberRepo {
	f := &fakeMemberRepo{byID: map[string]*models.Member{}, byEmail: map[string]*models.Member{}}
	for _, m := range ms {
		f.byID[m.ID] = m
		f.byEmail[m.Email] = m
	}
	return f
}

func (f *fakeMemberRepo) FindByID(ctx context.Context, id string) (*models.Member, error) {
	return f.byID[id], nil
}

func (f *fakeMemberRepo) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	return f.byEmail[email], nil
}

type testEnv struct {
	router *gin.Engine
	codec  *tokens.Codec
	ledger revocation.Ledger
	redis  *mr.Miniredis
	member *models.Member
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	ledger := revocation.NewRedisLedger(redis.NewClient(&redis.Options{Addr: m.Addr()}), "")

	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{
		Secret:          "handler-test-secret-32-bytes-xxxxxx",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	member := &models.Member{ID: "m1", Email: "a@b.com", Name: "Alice", Active: true, PasswordHash: string(hash)}

	codec := tokens.NewCodec(cfg.JWT)
	membersSvc := members.NewService(newFakeMemberRepo(member))
	authSvc := auth.NewService(codec, membersSvc, ledger)

	r := gin.New()
	NewAuthHandler(cfg, membersSvc, authSvc).Register(r.Group("/"))

	return &testEnv{router: r, codec: codec, ledger: ledger, redis: m, member: member}
}

func (e *testEnv) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestLogin_Success(t *testing.T) {
	e := newTestEnv(t)

	w := e.post("/auth/login", `{"email":"a@b.com","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode(t, w)
	assert.NotEmpty(t, got["accessToken"])
	assert.NotEmpty(t, got["refreshToken"])
	assert.Equal(t, float64(900), got["expiresIn"])

	claims, ok := e.codec.Verify(got["accessToken"].(string), tokens.KindAccess)
	require.True(t, ok)
	assert.Equal(t, "m1", claims.MemberID)
}

func TestLogin_BadCredentialsAreUniform(t *testing.T) {
	e := newTestEnv(t)

	// wrong password and unknown email produce identical responses
	w1 := e.post("/auth/login", `{"email":"a@b.com","password":"wrong"}`)
	w2 := e.post("/auth/login", `{"email":"nobody@b.com","password":"hunter22"}`)
	require.Equal(t, http.StatusUnauthorized, w1.Code)
	require.Equal(t, http.StatusUnauthorized, w2.Code)
	assert.Equal(t, w1.Body.String(), w2.Body.String())
}

func TestLogin_InactiveMember(t *testing.T) {
	e := newTestEnv(t)
	e.member.Active = false

	w := e.post("/auth/login", `{"email":"a@b.com","password":"hunter22"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "inactive_member", decode(t, w)["error"])
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	e := newTestEnv(t)

	login := decode(t, e.post("/auth/login", `{"email":"a@b.com","password":"hunter22"}`))
	oldRefresh := login["refreshToken"].(string)

	// renewal succeeds and yields a fresh pair
	w := e.post("/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, oldRefresh))
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	require.NotEmpty(t, got["access_token"])
	require.NotEmpty(t, got["refresh_token"])
	require.NotEqual(t, oldRefresh, got["refresh_token"])

	claims, ok := e.codec.Verify(got["access_token"].(string), tokens.KindAccess)
	require.True(t, ok)
	assert.Equal(t, "m1", claims.MemberID)

	// replaying the consumed token must fail
	w = e.post("/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, oldRefresh))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "revoked_token", decode(t, w)["error"])

	// the new refresh token still works
	w = e.post("/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, got["refresh_token"]))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRefresh_MalformedBody(t *testing.T) {
	e := newTestEnv(t)

	for _, body := range []string{``, `{}`, `{"refresh_token":""}`, `not json`} {
		w := e.post("/auth/refresh", body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestRefresh_ForeignSignedToken(t *testing.T) {
	e := newTestEnv(t)

	foreign := tokens.NewCodec(config.JWTConfig{Secret: "not-our-secret-32-bytes-xxxxxxxxxxx"})
	tok, err := foreign.Issue(tokens.KindRefresh, e.member, time.Hour)
	require.NoError(t, err)

	w := e.post("/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, tok))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_token", decode(t, w)["error"])
	// no ledger entry was created for a token we never accepted
	require.Empty(t, e.redis.Keys())
}

func TestRefresh_InactiveMember(t *testing.T) {
	e := newTestEnv(t)

	login := decode(t, e.post("/auth/login", `{"email":"a@b.com","password":"hunter22"}`))
	refresh := login["refreshToken"].(string)

	e.member.Active = false
	w := e.post("/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "inactive_member", decode(t, w)["error"])
	// no rotation was performed
	require.Empty(t, e.redis.Keys())
}

func TestRefresh_UnknownMember(t *testing.T) {
	e := newTestEnv(t)

	ghost := &models.Member{ID: "gone", Email: "g@b.com", Active: true}
	tok, err := e.codec.Issue(tokens.KindRefresh, ghost, time.Hour)
	require.NoError(t, err)

	w := e.post("/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, tok))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "member_not_found", decode(t, w)["error"])
}

func TestLogout_RevokesRefreshAndAccess(t *testing.T) {
	e := newTestEnv(t)

	login := decode(t, e.post("/auth/login", `{"email":"a@b.com","password":"hunter22"}`))
	access := login["accessToken"].(string)
	refresh := login["refreshToken"].(string)

	req := httptest.NewRequest("POST", "/auth/logout", strings.NewReader(fmt.Sprintf(`{"refresh_token":%q}`, refresh)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// both tokens are now in the ledger
	for _, tok := range []string{refresh, access} {
		revoked, err := e.ledger.IsRevoked(context.Background(), tok)
		require.NoError(t, err)
		require.True(t, revoked)
	}

	// and the refresh token can no longer be exchanged
	w2 := e.post("/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh))
	require.Equal(t, http.StatusUnauthorized, w2.Code)
}
