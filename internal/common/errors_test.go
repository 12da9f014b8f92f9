package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
)

func TestToStatusAndExitCode(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
		exit int
	}{
		{nil, codes.OK, 0},
		{NotFoundf("contract %s", "x"), codes.NotFound, 2},
		{Validationf("bad"), codes.InvalidArgument, 2},
		{fmt.Errorf("wrapped: %w", ErrConflict), codes.FailedPrecondition, 2},
		{DatabaseError("insert", errors.New("disk full")), codes.Unavailable, 1},
		{errors.New("boom"), codes.Internal, 1},
	}
	for _, tc := range cases {
		if got := ToStatus(tc.err).Code(); got != tc.code {
			t.Errorf("ToStatus(%v) = %v, want %v", tc.err, got, tc.code)
		}
		if got := ExitCode(tc.err); got != tc.exit {
			t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.exit)
		}
	}
}

func TestDatabaseErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := DatabaseError("list charges", cause)
	if !errors.Is(err, ErrDatabase) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want ErrDatabase and cause", err)
	}
	if DatabaseError("noop", nil) != nil || WrapError(nil, "x") != nil {
		t.Error("nil errors must stay nil")
	}
}

func TestValidator(t *testing.T) {
	day := 40
	err := NewValidator().
		Field("tenant_id", uuid.Nil, Required).
		Field("currency", "clp", CurrencyCode).
		Field("pay_day", &day, DayOfMonth).
		Field("notes", "ñandú", MaxLength(5)).
		Field("owner_id", uuid.New(), Required).
		Err()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	var app *AppError
	if !errors.As(err, &app) {
		t.Fatalf("err is not an AppError: %T", err)
	}
	for _, field := range []string{"tenant_id", "currency", "pay_day"} {
		if !strings.Contains(app.Message, field) {
			t.Errorf("message %q does not mention %s", app.Message, field)
		}
	}
	if strings.Contains(app.Message, "notes") || strings.Contains(app.Message, "owner_id") {
		t.Errorf("message %q flags a valid field", app.Message)
	}

	var absent *int
	if err := NewValidator().Field("pay_day", absent, DayOfMonth).Err(); err != nil {
		t.Errorf("absent pay day: %v", err)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := WithContractID(WithRequestID(context.Background(), "req-1"), "c-9")
	if RequestIDFromContext(ctx) != "req-1" || ContractIDFromContext(ctx) != "c-9" {
		t.Errorf("ids = %q %q", RequestIDFromContext(ctx), ContractIDFromContext(ctx))
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context has a request id")
	}

	tctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := tctx.Deadline(); ok {
		t.Error("zero timeout must not set a deadline")
	}
}
