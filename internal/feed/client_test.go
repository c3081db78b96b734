package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "tok-123"

// fakeServer mimics the user and blog endpoints.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Invalid credentials", Code: models.CodeInvalidCredentials})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: middleware.AuthCookieName, Value: testToken, Path: "/"})
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": testToken,
			"user":  models.User{ID: "u1", Name: "Ada"},
		})
	})
	mux.HandleFunc("GET /api/users/my-profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(models.User{ID: "u1", Name: "Ada"})
	})
	mux.HandleFunc("POST /api/users/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: middleware.AuthCookieName, Value: "", Path: "/", MaxAge: -1})
		_, _ = w.Write([]byte(`{"message":"Logged out successfully"}`))
	})
	mux.HandleFunc("GET /api/blogs/all-blogs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"blogs": sampleBlogs()})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("/api")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.BaseURL().String())
}

func TestClient_ProfileWithoutCredential(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Profile(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, hits, "no request without a credential")
}

func TestClient_LoginProfileLogout(t *testing.T) {
	srv := fakeServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	user, err := c.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, testToken, c.Token())

	profile, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Token())
	_, err = c.Profile(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestClient_TokenFromCookie(t *testing.T) {
	srv := fakeServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	c.SetToken("")
	assert.Equal(t, testToken, c.Token(), "falls back to the authToken cookie")

	c.ClearCredential()
	assert.Empty(t, c.Token())
}

func TestClient_Blogs(t *testing.T) {
	srv := fakeServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	blogs, err := c.Blogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, blogIDs(blogs))
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrUnauthenticated},
		{name: "server error", status: http.StatusInternalServerError, wantErr: ErrTransient},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantErr: ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c, err := NewClient(srv.URL)
			require.NoError(t, err)
			_, err = c.Blogs(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Blog not found","code":"NOT_FOUND"}`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		require.NoError(t, err)
		_, err = c.Blogs(context.Background())
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusNotFound, se.Status)
		assert.Equal(t, models.CodeNotFound, se.Body.Code)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := NewClient(url)
		require.NoError(t, err)
		_, err = c.Blogs(context.Background())
		assert.ErrorIs(t, err, ErrTransient)
	})

	t.Run("deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = c.Blogs(ctx)
		assert.ErrorIs(t, err, ErrTransient)
	})
}

func TestProvider_WithClient(t *testing.T) {
	srv := fakeServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	p := NewProvider(c, Options{})

	p.Start(context.Background())
	snap := p.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Len(t, snap.Blogs, 4)

	_, err = c.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	p.CheckAuth(context.Background())
	assert.True(t, p.Snapshot().Authenticated)
	assert.Equal(t, "Ada", p.Snapshot().Profile.Name)
}
