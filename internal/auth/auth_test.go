package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Issuer:     "nursing-portal",
		SigningKey: "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		SessionTTL: 12 * time.Hour,
	}
}

func instructor() Identity {
	return Identity{Subject: "u-1", Email: "lead@school.test", Name: "Clinical Lead", Role: RoleInstructor}
}

func TestIssueAndParse(t *testing.T) {
	cfg := testConfig()
	pair, err := cfg.Issue(instructor(), false)
	require.NoError(t, err)

	claims, err := cfg.Parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "lead@school.test", claims.Email)
	assert.Equal(t, "Clinical Lead", claims.Name)
	assert.Equal(t, RoleInstructor, claims.Role)
	assert.Equal(t, "nursing-portal", claims.Issuer)
}

func TestRememberSelectsRefreshLifetime(t *testing.T) {
	cfg := testConfig()

	session, err := cfg.Issue(instructor(), false)
	require.NoError(t, err)
	remembered, err := cfg.Issue(instructor(), true)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(cfg.SessionTTL), session.RefreshExp, time.Minute)
	assert.WithinDuration(t, time.Now().Add(cfg.RefreshTTL), remembered.RefreshExp, time.Minute)
	assert.WithinDuration(t, session.AccessExp, remembered.AccessExp, time.Minute)
}

func TestParseRejectsBadTokens(t *testing.T) {
	cfg := testConfig()
	pair, err := cfg.Issue(instructor(), false)
	require.NoError(t, err)

	other := cfg
	other.SigningKey = "different"
	_, err = other.Parse(pair.AccessToken)
	assert.Error(t, err)

	wrongIssuer := cfg
	wrongIssuer.Issuer = "someone-else"
	_, err = wrongIssuer.Parse(pair.AccessToken)
	assert.Error(t, err)

	expired := cfg
	expired.AccessTTL = -time.Minute
	old, err := expired.Issue(instructor(), false)
	require.NoError(t, err)
	_, err = cfg.Parse(old.AccessToken)
	assert.Error(t, err)

	_, err = cfg.Issue(Identity{}, false)
	assert.Error(t, err)
}

func TestInstructorAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	r := gin.New()
	r.GET("/who", InstructorAuth(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, CallerIdentity(c))
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer nonsense").Code)

	student := Identity{Subject: "s-1", Role: "student"}
	pair, err := cfg.Issue(student, false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call("Bearer "+pair.AccessToken).Code)

	pair, err = cfg.Issue(instructor(), false)
	require.NoError(t, err)
	w := call("bearer " + pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Clinical Lead", w.Body.String())
}

func TestCallerIdentityFallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		claims *Claims
		want   string
	}{
		{&Claims{Name: "Ada"}, "Ada"},
		{&Claims{Email: "ada@school.test"}, "ada@school.test"},
		{func() *Claims { c := &Claims{}; c.Subject = "u-9"; return c }(), "u-9"},
		{nil, RoleInstructor},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		if tc.claims != nil {
			c.Set(claimsKey, *tc.claims)
		}
		assert.Equal(t, tc.want, CallerIdentity(c))
	}
}
