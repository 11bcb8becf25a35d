package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/regportal/regbridge/internal/credential"
	"github.com/regportal/regbridge/internal/model"
)

// RejectStatuses lists the login response codes the upstream uses for bad
// credentials. Observed behaviour, not a documented contract: adjust here.
var RejectStatuses = map[int]bool{
	http.StatusUnauthorized: true,
	http.StatusNotFound:     true,
}

// lockMarker in a rejection's `result` text means the account is locked.
const lockMarker = "Lock"

// Outcome is the terminal state of a login attempt that reached a verdict.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeAuthFailed Outcome = "auth_failed"
)

// Reason explains an AuthFailed outcome.
type Reason string

const (
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonAccountLocked      Reason = "account_locked"
)

// Credentials are the user supplied login inputs. ClientIP is best effort and
// may be empty.
type Credentials struct {
	Username string
	Password string
	ClientIP string
}

// Session is the result of a successful handshake.
type Session struct {
	ServiceToken string
	BearerToken  string
	Profile      model.Profile
	Image        string
	NavImage     string
}

// Rejection is the structured verdict for bad credentials or a locked account.
type Rejection struct {
	Reason  Reason
	Status  int
	Message string
}

// LoginResult is returned whenever the upstream reached a verdict. Exactly one
// of Session and Rejection is set.
type LoginResult struct {
	Outcome   Outcome
	Session   *Session
	Rejection *Rejection
}

type tokenServiceResponse struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Token     string `json:"token"`
	TokenUser string `json:"tokenuser"`
	Img       string `json:"img"`
	NavImg    string `json:"navimg"`
}

type rejectionBody struct {
	Result string `json:"result"`
}

// Login runs the token-then-login handshake:
//
//	FETCH_SERVICE_TOKEN -> ENCRYPT_CREDENTIALS -> LOGIN_REQUEST -> SUCCESS | AUTH_FAILED | UPSTREAM_ERROR
//
// SUCCESS and AUTH_FAILED come back as a LoginResult; UPSTREAM_ERROR (and a
// missing secret key) come back as an *Error. The two round trips are
// sequential because the second needs the first's token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	serviceToken, err := c.FetchServiceToken(ctx)
	if err != nil {
		return LoginResult{}, err
	}

	body, err := c.loginBody(creds)
	if err != nil {
		return LoginResult{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.authURL("/Account/LoginAD"), serviceToken, strings.NewReader(body))
	if err != nil {
		return LoginResult{}, unavailable("login", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("login request failed", zap.Error(err))
		return LoginResult{}, transportError("login", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return c.loginSucceeded(serviceToken, resp.Body)
	case RejectStatuses[resp.StatusCode]:
		rej := rejectionFrom(resp.StatusCode, resp.Body)
		c.log.Info("login rejected",
			zap.String("username", creds.Username),
			zap.Int("status", resp.StatusCode),
			zap.String("reason", string(rej.Reason)),
		)
		return LoginResult{Outcome: OutcomeAuthFailed, Rejection: &rej}, nil
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return LoginResult{}, unexpectedStatus("login", resp.StatusCode)
	}
}

// FetchServiceToken obtains the short lived token required by the login call.
func (c *Client) FetchServiceToken(ctx context.Context) (string, error) {
	var out tokenServiceResponse
	if err := c.getJSON(ctx, "tokenservice", c.authURL("/Validate/tokenservice"), "", &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", unavailable("tokenservice", "tokenservice did not return a valid token", nil)
	}
	return out.Token, nil
}

// loginBody encrypts the credentials and wraps them exactly as the legacy
// deserializer expects. The literal spacing around the colon is part of the
// contract, so the body is formatted by hand.
func (c *Client) loginBody(creds Credentials) (string, error) {
	envelope, err := credential.Seal(credential.Payload{
		Username: creds.Username,
		Password: creds.Password,
		ClientIP: creds.ClientIP,
	}, c.secretKey)
	if err != nil {
		if errors.Is(err, credential.ErrMissingKey) {
			return "", configError("login", "credential secret key is not configured", err)
		}
		return "", unavailable("login", "encrypt credentials", err)
	}
	return fmt.Sprintf(`{"param" : "%s"}`, envelope), nil
}

func (c *Client) loginSucceeded(serviceToken string, body io.Reader) (LoginResult, error) {
	var out loginResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return LoginResult{}, unavailable("login", "decode response", err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return LoginResult{}, unavailable("login", "login response did not include a token", nil)
	}

	profile, err := decodeProfile(out.TokenUser)
	if err != nil {
		// The bearer token is still valid; only the profile is lost.
		c.log.Warn("tokenuser payload could not be decoded", zap.Error(err))
	}

	return LoginResult{
		Outcome: OutcomeSuccess,
		Session: &Session{
			ServiceToken: serviceToken,
			BearerToken:  out.Token,
			Profile:      profile,
			Image:        out.Img,
			NavImage:     out.NavImg,
		},
	}, nil
}

func rejectionFrom(status int, body io.Reader) Rejection {
	var rb rejectionBody
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	_ = json.Unmarshal(raw, &rb)

	if strings.Contains(rb.Result, lockMarker) {
		return Rejection{
			Reason:  ReasonAccountLocked,
			Status:  status,
			Message: "account is locked, please contact the registrar",
		}
	}
	return Rejection{
		Reason:  ReasonInvalidCredentials,
		Status:  status,
		Message: "invalid username or password",
	}
}
