package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"geowatch/internal/model"
)

func TestDevToken(t *testing.T) {
	v := &Verifier{Mode: "dev"}
	viewer, err := v.Verify("field_agent:Maârif:agent-7")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if viewer.Role != model.RoleFieldAgent || viewer.Commune != "Maârif" || viewer.ID != "agent-7" {
		t.Fatalf("viewer = %+v", viewer)
	}
	if _, err := v.Verify("justonefield"); err == nil {
		t.Fatal("short dev token should fail")
	}
}

func signHS256(t *testing.T, secret []byte, header, payload string) string {
	t.Helper()
	enc := base64.RawURLEncoding
	signing := enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload))
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signing))
	return signing + "." + enc.EncodeToString(mac.Sum(nil))
}

func TestHMACToken(t *testing.T) {
	secret := []byte("s3cret")
	v := &Verifier{
		Mode: "hmac", HMACSecret: secret,
		RoleClaim: "role", CommuneClaim: "commune", PrefectureClaim: "prefecture", SubjectClaim: "sub",
	}
	token := signHS256(t, secret,
		`{"alg":"HS256","typ":"JWT"}`,
		`{"role":"supervisor","commune":"Anfa","prefecture":"Casablanca","sub":"u-12"}`)
	viewer, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if viewer.Role != model.RoleSupervisor || viewer.ID != "u-12" {
		t.Fatalf("viewer = %+v", viewer)
	}

	forged := signHS256(t, []byte("other"), `{"alg":"HS256"}`, `{"role":"admin"}`)
	if _, err := v.Verify(forged); err == nil {
		t.Fatal("forged signature accepted")
	}
	noRole := signHS256(t, secret, `{"alg":"HS256"}`, `{"commune":"Anfa"}`)
	if _, err := v.Verify(noRole); err == nil {
		t.Fatal("token without role accepted")
	}
}
