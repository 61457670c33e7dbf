package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/akinalp/sohbet/models"
	"github.com/akinalp/sohbet/pkg"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "nil geçer",
			err:  nil,
			want: nil,
		},
		{
			name: "satır yok → ErrNotFound",
			err:  pgx.ErrNoRows,
			want: pkg.ErrNotFound,
		},
		{
			name: "undefined_table SQLSTATE → ErrStoreMissing",
			err:  &pgconn.PgError{Code: "42P01", Message: `relation "messages" does not exist`},
			want: pkg.ErrStoreMissing,
		},
		{
			name: "unique_violation SQLSTATE → ErrAlreadyExists",
			err:  &pgconn.PgError{Code: "23505", Message: "duplicate key value"},
			want: pkg.ErrAlreadyExists,
		},
		{
			// SQLSTATE kodu kaybolmuş, metin kalmış — yine yakalanmalı
			name: "relation does not exist metni → ErrStoreMissing",
			err:  errors.New(`ERROR: relation "messages" does not exist`),
			want: pkg.ErrStoreMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestClassifyLeavesTransientErrorsAlone(t *testing.T) {
	transient := errors.New("connection refused")
	got := classify(transient)

	assert.NotErrorIs(t, got, pkg.ErrStoreMissing)
	assert.NotErrorIs(t, got, pkg.ErrNotFound)
	assert.Equal(t, transient, got)
}

func TestNormalizeMessage(t *testing.T) {
	m := normalizeMessage(models.Message{ID: "m1"})

	assert.NotNil(t, m.ReplyRefs)
	assert.NotNil(t, m.Mentions)
	assert.NotNil(t, m.Reactions)
	assert.NotNil(t, m.ReadBy)

	// Dolu alanlar korunmalı
	withData := normalizeMessage(models.Message{
		ID:       "m2",
		Mentions: []string{"alice"},
	})
	assert.Equal(t, []string{"alice"}, withData.Mentions)
}

func TestUpdateMessageRejectsEmptyUpdate(t *testing.T) {
	// Boş update DB'ye hiç gitmez — nil querier ile bile güvenli
	store := NewPostgresStore(nil, nil)

	_, err := store.UpdateMessage(context.Background(), "m1", MessageUpdate{})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}
