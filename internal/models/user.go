package models

import "time"

// Role определяет, какие формы разрешено отправлять оператору
type Role string

const (
	RoleYardOperator    Role = "yard_operator"    // оператор площадки: приход и отгрузка
	RoleDriver          Role = "driver"           // водитель: отправка и приемка
	RoleMachineOperator Role = "machine_operator" // оператор техники: перемещение
	RoleAdmin           Role = "admin"            // все формы
)

var roleKinds = map[Role][]FormKind{
	RoleYardOperator:    {KindEntry, KindExit},
	RoleDriver:          {KindDispatch, KindReception},
	RoleMachineOperator: {KindTransfer},
	RoleAdmin:           AllKinds,
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := roleKinds[r]
	return ok
}

// Allows reports whether the role may submit forms of the given kind
func (r Role) Allows(kind FormKind) bool {
	for _, k := range roleKinds[r] {
		if k == kind {
			return true
		}
	}
	return false
}

// Kinds returns the form kinds available to the role
func (r Role) Kinds() []FormKind {
	return append([]FormKind(nil), roleKinds[r]...)
}

// User представляет оператора в системе
type User struct {
	CreatedAt    time.Time `json:"created_at"`    // время создания
	UpdatedAt    time.Time `json:"updated_at"`    // время последнего обновления
	ID           string    `json:"id"`            // UUID пользователя
	Username     string    `json:"username"`      // уникальный username
	PasswordHash string    `json:"password_hash"` // bcrypt хеш пароля
	Role         Role      `json:"role"`
}

// StoredSubmission is a submission accepted by the collector
type StoredSubmission struct {
	ReceivedAt time.Time      `json:"received_at"`
	Fields     map[string]any `json:"fields"`
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Kind       FormKind       `json:"kind"`
}
