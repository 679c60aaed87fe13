package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type UserStatus string

const (
	StatusPending UserStatus = "PENDING"
	StatusActive  UserStatus = "ACTIVE"
)

type User struct {
	ID       int64
	Email    string
	PassHash []byte
	Status   UserStatus
}

type ConfirmationToken struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// * IsExpired проверяет, истек ли срок действия токена
func (t *ConfirmationToken) IsExpired() bool {
	return t.ExpiresAt.Before(time.Now())
}

type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID int64  `json:"-"`
}

type Expense struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        Date            `json:"date"`
	UserID      int64           `json:"-"`
}

type Message struct {
	Email string `json:"to"`
	Link  string `json:"link"`
}

const dateLayout = "2006-01-02"

// Date is a calendar date without a time component, serialized as "2006-01-02".
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected format %s", s, dateLayout)
	}
	d.Time = t
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}
