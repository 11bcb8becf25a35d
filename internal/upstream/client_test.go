package upstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regportal/regbridge/internal/codec"
	"github.com/regportal/regbridge/internal/credential"
	"github.com/regportal/regbridge/internal/schedule"
)

const testSecret = "shared-upstream-key"

// stubIdentity emulates the identity endpoints. loginStatus/loginBody drive
// the LoginAD response; lastBody captures what the client posted.
type stubIdentity struct {
	serviceToken string
	loginStatus  int
	loginBody    string
	lastBody     atomic.Value
	lastAuth     atomic.Value
}

func (s *stubIdentity) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Validate/tokenservice", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"token": s.serviceToken})
	})
	mux.HandleFunc("/Account/LoginAD", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		raw, _ := io.ReadAll(r.Body)
		s.lastBody.Store(string(raw))
		s.lastAuth.Store(r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer "+s.serviceToken {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(s.loginStatus)
		_, _ = io.WriteString(w, s.loginBody)
	})
	return mux
}

func newTestClient(t *testing.T, authURL, timetableURL string) *Client {
	t.Helper()
	c, err := New(Options{AuthBaseURL: authURL, TimetableBaseURL: timetableURL, SecretKey: testSecret})
	require.NoError(t, err)
	return c
}

func signedTokenUser(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("upstream-private"))
	require.NoError(t, err)
	return tok
}

func TestNew(t *testing.T) {
	_, err := New(Options{AuthBaseURL: "http://a", TimetableBaseURL: "http://b"})
	require.Error(t, err)
	assert.Equal(t, CategoryConfig, CategoryOf(err))

	_, err = New(Options{SecretKey: "k", TimetableBaseURL: "http://b"})
	assert.Equal(t, CategoryConfig, CategoryOf(err))

	c, err := New(Options{SecretKey: "k", AuthBaseURL: "http://a/", TimetableBaseURL: "http://b/", TermPath: "Term/Now"})
	require.NoError(t, err)
	assert.Equal(t, "http://a", c.authBase)
	assert.Equal(t, "/Term/Now", c.termPath)
	assert.NotNil(t, c.httpClient)
}

func TestLoginSuccess(t *testing.T) {
	stub := &stubIdentity{
		serviceToken: "svc123",
		loginStatus:  http.StatusOK,
	}
	stub.loginBody = `{"token":"userABC","tokenuser":"` +
		signedTokenUser(t, jwt.MapClaims{"username": "Somchai"}) + `","img":"a.png"}`
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	res, err := c.Login(context.Background(), Credentials{Username: "Somchai", Password: "pw", ClientIP: "10.0.0.1"})
	require.NoError(t, err)

	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.NotNil(t, res.Session)
	assert.Nil(t, res.Rejection)
	assert.Equal(t, "userABC", res.Session.BearerToken)
	assert.Equal(t, "svc123", res.Session.ServiceToken)
	assert.Equal(t, "Somchai", res.Session.Profile.Username)
	assert.Empty(t, res.Session.Profile.Email)
	assert.Equal(t, "a.png", res.Session.Image)

	assert.Equal(t, "Bearer svc123", stub.lastAuth.Load())
	body := stub.lastBody.Load().(string)
	m := regexp.MustCompile(`^\{"param" : "([A-Za-z0-9+/=]+)"\}$`).FindStringSubmatch(body)
	require.NotNil(t, m, "unexpected body %q", body)
	raw, err := base64.StdEncoding.DecodeString(m[1])
	require.NoError(t, err)
	assert.Greater(t, len(raw), credential.SaltSize+credential.IVSize)
}

func TestLoginProfileDecodeIsBestEffort(t *testing.T) {
	cases := map[string]string{
		"missing":      `{"token":"userABC"}`,
		"garbage":      `{"token":"userABC","tokenuser":"not-a-jwt"}`,
		"bad payload":  `{"token":"userABC","tokenuser":"eyJhbGciOiJIUzI1NiJ9.%%%.sig"}`,
		"unknown alg":  `{"token":"userABC","tokenuser":"eyJhbGciOiJYWVoifQ.` + base64.RawURLEncoding.EncodeToString([]byte(`{"username":"Malee"}`)) + `.sig"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			stub := &stubIdentity{serviceToken: "svc", loginStatus: http.StatusOK, loginBody: body}
			srv := httptest.NewServer(stub.handler(t))
			defer srv.Close()

			res, err := newTestClient(t, srv.URL, srv.URL).Login(context.Background(), Credentials{Username: "u", Password: "p"})
			require.NoError(t, err)
			require.Equal(t, OutcomeSuccess, res.Outcome)
			assert.Equal(t, "userABC", res.Session.BearerToken)
			if name == "unknown alg" {
				assert.Equal(t, "Malee", res.Session.Profile.Username)
			} else {
				assert.Empty(t, res.Session.Profile.Username)
			}
		})
	}
}

func TestLoginRejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason Reason
	}{
		{"locked", http.StatusNotFound, `{"result":"Account Lock"}`, ReasonAccountLocked},
		{"invalid via 404", http.StatusNotFound, `{"result":"Invalid"}`, ReasonInvalidCredentials},
		{"invalid via 401", http.StatusUnauthorized, ``, ReasonInvalidCredentials},
		{"non json body", http.StatusNotFound, `<html>not found</html>`, ReasonInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubIdentity{serviceToken: "svc", loginStatus: tt.status, loginBody: tt.body}
			srv := httptest.NewServer(stub.handler(t))
			defer srv.Close()

			res, err := newTestClient(t, srv.URL, srv.URL).Login(context.Background(), Credentials{Username: "u", Password: "bad"})
			require.NoError(t, err)
			assert.Equal(t, OutcomeAuthFailed, res.Outcome)
			assert.Nil(t, res.Session)
			require.NotNil(t, res.Rejection)
			assert.Equal(t, tt.reason, res.Rejection.Reason)
			assert.Equal(t, tt.status, res.Rejection.Status)
			assert.NotEmpty(t, res.Rejection.Message)
		})
	}

	locked := rejectionFrom(404, strings.NewReader(`{"result":"Lock"}`))
	invalid := rejectionFrom(404, strings.NewReader(`{"result":"Invalid"}`))
	assert.NotEqual(t, locked.Message, invalid.Message)
}

func TestLoginUpstreamErrors(t *testing.T) {
	t.Run("tokenservice without token", func(t *testing.T) {
		stub := &stubIdentity{serviceToken: "", loginStatus: http.StatusOK}
		srv := httptest.NewServer(stub.handler(t))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL, srv.URL).Login(context.Background(), Credentials{Username: "u"})
		require.Error(t, err)
		assert.Equal(t, CategoryUnavailable, CategoryOf(err))
		assert.Contains(t, err.Error(), "tokenservice did not return a valid token")
		assert.Nil(t, stub.lastBody.Load(), "login must not be attempted")
	})

	t.Run("unexpected login status", func(t *testing.T) {
		stub := &stubIdentity{serviceToken: "svc", loginStatus: http.StatusInternalServerError, loginBody: "boom"}
		srv := httptest.NewServer(stub.handler(t))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL, srv.URL).Login(context.Background(), Credentials{Username: "u"})
		var ue *Error
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, CategoryUnavailable, ue.Category)
		assert.Equal(t, http.StatusInternalServerError, ue.Status)
	})

	t.Run("200 without token", func(t *testing.T) {
		stub := &stubIdentity{serviceToken: "svc", loginStatus: http.StatusOK, loginBody: `{"tokenuser":""}`}
		srv := httptest.NewServer(stub.handler(t))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL, srv.URL).Login(context.Background(), Credentials{Username: "u"})
		assert.Equal(t, CategoryUnavailable, CategoryOf(err))
	})

	t.Run("network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newTestClient(t, url, url).Login(context.Background(), Credentials{Username: "u"})
		assert.Equal(t, CategoryUnavailable, CategoryOf(err))
	})

	t.Run("deadline maps to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := newTestClient(t, srv.URL, srv.URL).Login(ctx, Credentials{Username: "u"})
		require.Error(t, err)
		assert.Equal(t, CategoryUnavailable, CategoryOf(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("client timeout maps to timed out", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		hc := DefaultHTTPClient()
		hc.Timeout = 50 * time.Millisecond
		c, err := New(Options{AuthBaseURL: srv.URL, TimetableBaseURL: srv.URL, SecretKey: testSecret, HTTPClient: hc})
		require.NoError(t, err)

		_, err = c.Login(context.Background(), Credentials{Username: "u"})
		var ue *Error
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, CategoryUnavailable, ue.Category)
		assert.Equal(t, "request timed out", ue.Message)
	})
}

// netTimeout is a transport error that reports Timeout() without wrapping
// context.DeadlineExceeded.
type netTimeout struct{}

func (netTimeout) Error() string   { return "i/o timeout" }
func (netTimeout) Timeout() bool   { return true }
func (netTimeout) Temporary() bool { return true }

func TestTransportError(t *testing.T) {
	assert.Equal(t, "request timed out", transportError("login", netTimeout{}).Message)
	assert.Equal(t, "request timed out", transportError("login", fmt.Errorf("dial: %w", context.DeadlineExceeded)).Message)
	assert.Equal(t, "request failed", transportError("login", errors.New("connection refused")).Message)
	assert.Equal(t, CategoryUnavailable, transportError("login", netTimeout{}).Category)
}

func TestFetchTimetable(t *testing.T) {
	rows := []codec.Row{{"coursecode": "523332", "time": "<B>จ</B>08:00-10:00"}}
	env, err := codec.Encode(rows)
	require.NoError(t, err)

	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth = r.URL.Path, r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/Timetable/Timetable/2567/1":
			_ = json.NewEncoder(w).Encode(env)
		case "/Timetable/Timetable/2567/2":
			_, _ = io.WriteString(w, `{"result":"@@@"}`)
		case "/Timetable/Timetable/2567/3":
			empty, _ := codec.Encode(map[string]any{"status": "none"})
			_ = json.NewEncoder(w).Encode(empty)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, srv.URL)
	ctx := context.Background()

	got, err := c.FetchTimetable(ctx, "userABC", schedule.Term{Year: 2567, Semester: 1})
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.Equal(t, "/Timetable/Timetable/2567/1", gotPath)
	assert.Equal(t, "Bearer userABC", gotAuth)

	_, err = c.FetchTimetable(ctx, "userABC", schedule.Term{Year: 2567, Semester: 2})
	assert.Equal(t, CategoryUnavailable, CategoryOf(err))
	assert.ErrorIs(t, err, codec.ErrBase64)

	got, err = c.FetchTimetable(ctx, "userABC", schedule.Term{Year: 2567, Semester: 3})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = c.FetchTimetable(ctx, "expired", schedule.Term{Year: 2560, Semester: 1})
	var ue *Error
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
}

func TestFetchCurrentTerm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer partial" {
			_, _ = io.WriteString(w, `{"acadyear":2567}`)
			return
		}
		assert.Equal(t, DefaultTermPath, r.URL.Path)
		_, _ = io.WriteString(w, `{"acadyear":2567,"semester":2}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, srv.URL)

	term, err := c.FetchCurrentTerm(context.Background(), "userABC")
	require.NoError(t, err)
	assert.Equal(t, schedule.Term{Year: 2567, Semester: 2}, term)

	_, err = c.FetchCurrentTerm(context.Background(), "partial")
	assert.Equal(t, CategoryUnavailable, CategoryOf(err))
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Category: CategoryUnavailable, Op: "login", Status: 500, Message: "unexpected status"}
	assert.Equal(t, "upstream login: unexpected status (status 500)", err.Error())
	assert.Equal(t, Category(""), CategoryOf(errors.New("plain")))
}
