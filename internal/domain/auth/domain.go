package auth

// Claims is the payload carried by both token kinds.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	// JTI, IssuedAt and ExpiresAt are filled on issue and verify.
	JTI       string `json:"jti,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

type TokenPair struct {
	Access  string `json:"token"`
	Refresh string `json:"refreshToken"`
}
