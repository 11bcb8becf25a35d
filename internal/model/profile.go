package model

import (
    "strconv"
    "strings"
)

// Profile holds the user fields found in the payload of the upstream
// `tokenuser` JWT. Every field is optional; an undecodable token leaves the
// profile zero valued.
type Profile struct {
    Username    string         `json:"username"`
    Email       string         `json:"email,omitempty"`
    Prefix      string         `json:"prefixname,omitempty"`
    FirstName   string         `json:"firstname,omitempty"`
    LastName    string         `json:"lastname,omitempty"`
    FirstNameEN string         `json:"firstnameeng,omitempty"`
    LastNameEN  string         `json:"lastnameeng,omitempty"`
    Roles       []string       `json:"roles,omitempty"`
    StatusID    string         `json:"statusid,omitempty"`
    Claims      map[string]any `json:"claims,omitempty"`
}

// ProfileFromClaims reads the known fields out of a decoded JWT payload and
// keeps the full claim set alongside. Values of unexpected types are skipped.
func ProfileFromClaims(claims map[string]any) Profile {
    p := Profile{
        Username:    claimString(claims, "username"),
        Email:       claimString(claims, "email"),
        Prefix:      claimString(claims, "prefixname"),
        FirstName:   claimString(claims, "firstname"),
        LastName:    claimString(claims, "lastname"),
        FirstNameEN: claimString(claims, "firstnameeng"),
        LastNameEN:  claimString(claims, "lastnameeng"),
        StatusID:    claimString(claims, "statusid"),
        Claims:      claims,
    }
    p.Roles = claimStrings(claims, "roles")
    if len(p.Roles) == 0 {
        p.Roles = claimStrings(claims, "role")
    }
    return p
}

// Public is the profile as sent to browsers: the curated fields only.  The
// raw claim set stays with the stored session.
func (p Profile) Public() Profile {
    p.Claims = nil
    return p
}

// DisplayName joins the Thai name parts, falling back to the username.
func (p Profile) DisplayName() string {
    name := strings.TrimSpace(strings.Join([]string{p.Prefix + p.FirstName, p.LastName}, " "))
    if name == "" {
        return p.Username
    }
    return name
}

func claimString(claims map[string]any, key string) string {
    switch v := claims[key].(type) {
    case string:
        return strings.TrimSpace(v)
    case float64:
        return strconv.FormatFloat(v, 'f', -1, 64)
    }
    return ""
}

// claimStrings accepts a JSON array of strings or a single comma separated string.
func claimStrings(claims map[string]any, key string) []string {
    var out []string
    switch v := claims[key].(type) {
    case []any:
        for _, it := range v {
            if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
                out = append(out, strings.TrimSpace(s))
            }
        }
    case string:
        for _, s := range strings.Split(v, ",") {
            if s = strings.TrimSpace(s); s != "" {
                out = append(out, s)
            }
        }
    }
    return out
}
