package loanmock

import (
	"context"
	"errors"
	"testing"

	"microloan-service/internal/apperror"
	domain "microloan-service/internal/domain/loan"
)

func TestRepo_Insert(t *testing.T) {
	ctx := context.Background()
	l := &domain.Loan{ID: "L-1"}

	wantErr := errors.New("boom")
	m := &Repo{
		InsertFn: func(gotCtx context.Context, got *domain.Loan) error {
			if gotCtx != ctx {
				t.Fatalf("Insert ctx mismatch")
			}
			if got != l {
				t.Fatalf("Insert arg mismatch")
			}
			return wantErr
		},
	}
	if err := m.Insert(ctx, l); !errors.Is(err, wantErr) {
		t.Fatalf("Insert: want %v, got %v", wantErr, err)
	}
	if m.InsertCalls != 1 {
		t.Fatalf("InsertCalls = %d, want 1", m.InsertCalls)
	}

	m = &Repo{}
	if err := m.Insert(ctx, l); err != nil {
		t.Fatalf("Insert default: want nil, got %v", err)
	}
}

func TestRepo_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}

	if _, err := m.FindByID(ctx, "x"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("FindByID default: want NOT_FOUND, got %v", err)
	}
	all, err := m.FindAll(ctx, domain.ListFilter{})
	if err != nil || all == nil || len(all) != 0 {
		t.Fatalf("FindAll default: got %#v, %v", all, err)
	}
	if rows, err := m.GroupTotals(ctx); err != nil || rows != nil {
		t.Fatalf("GroupTotals default: got %#v, %v", rows, err)
	}
}

func TestRepo_FindByIDFn(t *testing.T) {
	want := &domain.Loan{ID: "L-9"}
	m := &Repo{FindByIDFn: func(ctx context.Context, id string) (*domain.Loan, error) {
		if id != "L-9" {
			t.Fatalf("id = %q", id)
		}
		return want, nil
	}}
	got, err := m.FindByID(context.Background(), "L-9")
	if err != nil || got != want {
		t.Fatalf("FindByID: got %v, %v", got, err)
	}
}

func TestInvalidator(t *testing.T) {
	inv := &Invalidator{Err: errors.New("redis down")}
	if err := inv.Invalidate(context.Background()); err == nil {
		t.Fatal("expected configured error")
	}
	if inv.Calls != 1 {
		t.Fatalf("Calls = %d", inv.Calls)
	}
}
