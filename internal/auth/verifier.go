// Package auth turns bearer tokens into viewer principals.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"geowatch/internal/model"
)

// Verifier validates tokens and extracts the viewer claims used by the
// visibility policy. Supported modes: dev (no verification, colon-joined
// fields) and hmac (HS256 JWT).
type Verifier struct {
	Mode            string
	HMACSecret      []byte
	RoleClaim       string
	CommuneClaim    string
	PrefectureClaim string
	SubjectClaim    string
}

func NewVerifierFromEnv() *Verifier {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{
		Mode:            mode,
		HMACSecret:      []byte(os.Getenv("AUTH_HMAC_SECRET")),
		RoleClaim:       envOr("AUTH_ROLE_CLAIM", "role"),
		CommuneClaim:    envOr("AUTH_COMMUNE_CLAIM", "commune"),
		PrefectureClaim: envOr("AUTH_PREFECTURE_CLAIM", "prefecture"),
		SubjectClaim:    envOr("AUTH_SUBJECT_CLAIM", "sub"),
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// Verify resolves a token into a viewer. Dev token format:
// role:commune[:viewerID].
func (v *Verifier) Verify(token string) (model.Viewer, error) {
	if v.Mode == "dev" {
		parts := strings.Split(token, ":")
		if len(parts) < 2 {
			return model.Viewer{}, errors.New("invalid dev token; expected role:commune")
		}
		viewer := model.Viewer{Role: strings.ToUpper(parts[0]), Commune: parts[1]}
		if len(parts) > 2 {
			viewer.ID = parts[2]
		}
		return viewer, nil
	}
	if v.Mode != "hmac" {
		return model.Viewer{}, errors.New("unsupported auth mode")
	}

	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return model.Viewer{}, errors.New("invalid JWT")
	}
	headerJSON, err := b64urlDecode(segs[0])
	if err != nil {
		return model.Viewer{}, err
	}
	payloadJSON, err := b64urlDecode(segs[1])
	if err != nil {
		return model.Viewer{}, err
	}
	sig, err := b64urlDecode(segs[2])
	if err != nil {
		return model.Viewer{}, err
	}
	var hdr map[string]any
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return model.Viewer{}, err
	}
	if alg, _ := hdr["alg"].(string); alg != "HS256" {
		return model.Viewer{}, errors.New("unsupported alg")
	}
	mac := hmac.New(sha256.New, v.HMACSecret)
	mac.Write([]byte(segs[0] + "." + segs[1]))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return model.Viewer{}, errors.New("bad signature")
	}

	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return model.Viewer{}, err
	}
	role, _ := claims[v.RoleClaim].(string)
	if role == "" {
		return model.Viewer{}, errors.New("missing role claim")
	}
	commune, _ := claims[v.CommuneClaim].(string)
	prefecture, _ := claims[v.PrefectureClaim].(string)
	subject, _ := claims[v.SubjectClaim].(string)
	return model.Viewer{
		ID:         subject,
		Role:       strings.ToUpper(role),
		Commune:    commune,
		Prefecture: prefecture,
	}, nil
}

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
