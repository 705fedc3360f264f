package api

// LoginRequest представляет запрос на аутентификацию оператора
type LoginRequest struct {
	Username string `json:"username"` // username оператора
	Password string `json:"password"` // пароль в открытом виде (только по TLS)
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	Token     string `json:"token"`      // JWT access token
	Role      string `json:"role"`       // роль оператора
	ExpiresIn int64  `json:"expires_in"` // время жизни токена в секундах
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string   `json:"error"`             // описание ошибки
	Message string   `json:"message,omitempty"` // дополнительное сообщение
	Details []string `json:"details,omitempty"` // нарушения схемы формы
}
