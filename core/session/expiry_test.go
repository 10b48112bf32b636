package session

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
)

func TestExpiresAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }() // reset

	jwtWithExp := func(exp time.Time) string {
		tkn, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{ExpiresAt: exp.Unix()}).SignedString([]byte("k"))
		return tkn
	}
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{Subject: "s"}).SignedString([]byte("k"))

	lifetime := 55 * time.Minute
	tests := []struct {
		name  string
		token string
		want  time.Time
	}{
		{name: "opaque token", token: "opaque", want: now.Add(lifetime)},
		{name: "jwt without exp", token: noExp, want: now.Add(lifetime)},
		{name: "jwt expiring first", token: jwtWithExp(now.Add(10 * time.Minute)), want: now.Add(10 * time.Minute)},
		{name: "jwt expiring later", token: jwtWithExp(now.Add(2 * time.Hour)), want: now.Add(lifetime)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpiresAt(tt.token, lifetime); !got.Equal(tt.want) {
				t.Errorf("ExpiresAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
