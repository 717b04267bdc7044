package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorConfig configures the operator guard.
type OperatorConfig struct {
	// Secret is the shared HS256 signing secret. Empty disables the
	// guard entirely and every request passes through.
	Secret string

	// Issuer is the expected token issuer (iss claim). Optional.
	Issuer string

	// HeaderName is the header containing the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is the prefix before the token in the header.
	// Default: "Bearer "
	TokenPrefix string
}

// Operator authenticates operator requests with a bearer JWT.
type Operator struct {
	config OperatorConfig
}

// NewOperator creates a new operator guard.
func NewOperator(config OperatorConfig) *Operator {
	// Apply defaults
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}

	return &Operator{config: config}
}

// Enabled reports whether the guard is active.
func (o *Operator) Enabled() bool {
	return o.config.Secret != ""
}

// Authenticate validates the bearer token on the request. It returns nil
// when the guard is disabled or the token is valid.
func (o *Operator) Authenticate(r *http.Request) error {
	if !o.Enabled() {
		return nil
	}

	header := r.Header.Get(o.config.HeaderName)
	if header == "" {
		return ErrMissingCredentials
	}

	tokenString := strings.TrimPrefix(header, o.config.TokenPrefix)
	if tokenString == header {
		return ErrMissingCredentials
	}
	tokenString = strings.TrimSpace(tokenString)

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if o.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(o.config.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(o.config.Secret), nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return ErrTokenMalformed
		}
		return ErrInvalidCredentials
	}

	if !token.Valid {
		return ErrInvalidCredentials
	}

	return nil
}

// Middleware wraps a handler with the operator guard. Failed requests
// receive a 401 JSON error envelope.
func (o *Operator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := o.Authenticate(r); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": err.Error(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
