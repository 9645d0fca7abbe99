package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidateAccessToken(t *testing.T) {
	svc := NewService("test-secret")
	tokens, err := svc.IssueAccessToken("user-1", "Rinjani Fan")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if tokens.TokenType != "Bearer" || tokens.ExpiresIn != int64(accessTokenTTL.Seconds()) {
		t.Fatalf("unexpected token response %+v", tokens)
	}

	claims, err := svc.ValidateAccessToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if claims.UserID != "user-1" || claims.Name != "Rinjani Fan" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestIssueAccessTokenMissingUser(t *testing.T) {
	svc := NewService("test-secret")
	if _, err := svc.IssueAccessToken("", "anon"); err == nil {
		t.Fatalf("expected error without user id")
	}
}

func TestIssueAccessTokenSignError(t *testing.T) {
	oldSign := signTokenFn
	signTokenFn = func(*jwt.Token, []byte) (string, error) { return "", errors.New("sign failed") }
	defer func() { signTokenFn = oldSign }()

	svc := NewService("test-secret")
	if _, err := svc.IssueAccessToken("user-1", "x"); err == nil {
		t.Fatalf("expected sign error")
	}
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	tokens, _ := NewService("one").IssueAccessToken("user-1", "x")
	if _, err := NewService("two").ValidateAccessToken(tokens.AccessToken); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestValidateAccessTokenExpired(t *testing.T) {
	svc := NewService("test-secret")
	token, err := svc.signToken("user-1", "x", -time.Minute)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := svc.ValidateAccessToken(token); err == nil {
		t.Fatalf("expected expired token error")
	}
}

func TestParseTokenInvalid(t *testing.T) {
	oldParse := parseWithClaimsFn
	parseWithClaimsFn = func(_ string, _ jwt.Claims, _ jwt.Keyfunc, _ ...jwt.ParserOption) (*jwt.Token, error) {
		return &jwt.Token{Valid: false, Claims: &Claims{UserID: "user-1"}}, nil
	}
	defer func() { parseWithClaimsFn = oldParse }()

	svc := NewService("test-secret")
	if _, err := svc.parseToken("token"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateAccessTokenGarbage(t *testing.T) {
	svc := NewService("test-secret")
	if _, err := svc.ValidateAccessToken("invalid-token"); err == nil {
		t.Fatalf("expected error")
	}
}
