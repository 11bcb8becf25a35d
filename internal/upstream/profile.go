package upstream

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/regportal/regbridge/internal/model"
)

var (
	errEmptyTokenUser     = errors.New("tokenuser is empty")
	errMalformedTokenUser = errors.New("tokenuser is not a three part jwt")
)

// decodeProfile reads the payload of the upstream `tokenuser` JWT WITHOUT
// verifying its signature. No verification key is published upstream; the
// token is trusted because it arrived on the same authenticated response as
// the bearer token. Do not use the result for authorization decisions.
func decodeProfile(tokenUser string) (model.Profile, error) {
	if tokenUser == "" {
		return model.Profile{}, errEmptyTokenUser
	}
	p := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := p.ParseUnverified(tokenUser, claims); err == nil {
		return model.ProfileFromClaims(claims), nil
	}

	// Unknown "alg" headers fail above; the payload segment is still readable.
	parts := strings.Split(tokenUser, ".")
	if len(parts) != 3 {
		return model.Profile{}, errMalformedTokenUser
	}
	raw, err := p.DecodeSegment(parts[1])
	if err != nil {
		return model.Profile{}, err
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.Profile{}, err
	}
	return model.ProfileFromClaims(payload), nil
}
