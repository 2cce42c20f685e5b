// Package apperr servis katmanı hatalarını HTTP durum kodlarına eşler.
package apperr

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindForbidden
	KindNotFound
)

type Error struct {
	Kind    Kind
	Message string
	// Count: engelleyici kayıt sayısı (ör. ödenmemiş komandalar), yoksa 0
	Count int64
}

func (e *Error) Error() string { return e.Message }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// NotFoundOr: kayıt yoksa NotFound, aksi halde hatayı olduğu gibi döndürür
func NotFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(format, args...)
	}
	return err
}

// ToFiber servis hatasını fiber.Error'a çevirir. Tanınmayan hatalar
// kalıcılık hatası sayılır, detay loglanır, kullanıcıya genel mesaj döner.
func ToFiber(err error, fallback string) error {
	if err == nil {
		return nil
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}

	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindValidation, KindConflict:
			return fiber.NewError(fiber.StatusBadRequest, e.Message)
		case KindForbidden:
			return fiber.NewError(fiber.StatusForbidden, e.Message)
		case KindNotFound:
			return fiber.NewError(fiber.StatusNotFound, e.Message)
		}
	}

	log.Printf("%s: %v", fallback, err)
	return fiber.NewError(fiber.StatusInternalServerError, fallback)
}
