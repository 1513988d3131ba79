package helpers

import (
	"strings"
	"time"
	"unicode"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func ParserTokenUnverified(tokenStr string) (jwt.MapClaims, bool) {
	var p jwt.Parser
	token, _, err := p.ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return nil, false
	}
	tokendata, ok := token.Claims.(jwt.MapClaims)
	return tokendata, ok
}

func Contains(a []int, x int) bool {
	for _, n := range a {
		if x == n {
			return true
		}
	}
	return false
}

// GenerateToken signs a staff token with the claims UserMiddleware reads.
// A ttl of zero issues a token without expiry.
func GenerateToken(userID int, email string, roles []int, jwtSecret string, ttl time.Duration) (string, error) {
	now := time.Now()
	standard := jwt.StandardClaims{
		IssuedAt: now.Unix(),
	}
	if ttl > 0 {
		standard.ExpiresAt = now.Add(ttl).Unix()
	}

	claims := struct {
		User map[string]interface{} `json:"u"`
		jwt.StandardClaims
	}{
		map[string]interface{}{
			"r":     roles,
			"i":     userID,
			"email": email,
		},
		standard,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		return "", err
	}

	return token, nil
}

// RemoveAccents strips diacritics so names survive the PDF renderer's fonts.
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(result)
}
