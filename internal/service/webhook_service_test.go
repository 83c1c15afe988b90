package service

import (
	"context"
	"errors"
	"testing"

	"cardpayout/internal/domain"
	"cardpayout/internal/signer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const callbackSecret = "callback-secret"

func seededRepo(extID string, status domain.PayoutStatus) *memPayoutRepo {
	repo := newMemPayoutRepo()
	p := payoutWithStatus(extID, 10000, status)
	if status == domain.StatusCompleted {
		tx := "T1"
		p.BankTxID = &tx
	}
	repo.payouts[extID] = p
	return repo
}

func TestReceive_MalformedBody(t *testing.T) {
	bodies := map[string]string{
		"not json":      `status=completed`,
		"array":         `[{"ext_id":"X1"}]`,
		"null":          `null`,
		"trailing data": `{"ext_id":"X1"}{"ext_id":"X2"}`,
		"truncated":     `{"ext_id":`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			repo := seededRepo("X1", domain.StatusPending)
			svc := NewWebhookService(repo, nil, WebhookConfig{}, discardLogger())

			result, err := svc.Receive(context.Background(), []byte(body), "")

			assert.ErrorIs(t, err, domain.ErrMalformedCallback)
			assert.Nil(t, result)
			assert.Empty(t, repo.callbacks)
			assert.Equal(t, domain.StatusPending, repo.payouts["X1"].Status)
		})
	}
}

func TestReceive_OrphanCallbackIsRecorded(t *testing.T) {
	repo := newMemPayoutRepo()
	svc := NewWebhookService(repo, nil, WebhookConfig{}, discardLogger())

	result, err := svc.Receive(context.Background(), []byte(`{"ext_id":"NOPE","status":"completed"}`), "")

	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.False(t, result.Applied)
	assert.Empty(t, repo.payouts)
	require.Len(t, repo.callbacks, 1)
	require.NotNil(t, repo.callbacks[0].TargetExternalID)
	assert.Equal(t, "NOPE", *repo.callbacks[0].TargetExternalID)
}

func TestReceive_CallbackWithoutExternalID(t *testing.T) {
	repo := newMemPayoutRepo()
	svc := NewWebhookService(repo, nil, WebhookConfig{}, discardLogger())

	body := `{"status":"completed","tx_id":"T9"}`
	result, err := svc.Receive(context.Background(), []byte(body), "")

	require.NoError(t, err)
	assert.Empty(t, result.ExternalID)
	require.Len(t, repo.callbacks, 1)
	assert.Nil(t, repo.callbacks[0].TargetExternalID)
	assert.Equal(t, body, repo.callbacks[0].Payload)
}

func TestReceive_RedeliveryAppliedOnce(t *testing.T) {
	repo := seededRepo("X1", domain.StatusPending)
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, "user-1", mock.Anything).Return(nil).Once()
	svc := NewWebhookService(repo, notifier, WebhookConfig{}, discardLogger())

	body := []byte(`{"ext_id":"X1","status":"completed","tx_id":"T1"}`)

	first, err := svc.Receive(context.Background(), body, "")
	require.NoError(t, err)
	assert.True(t, first.Matched)
	assert.True(t, first.Applied)

	second, err := svc.Receive(context.Background(), body, "")
	require.NoError(t, err)
	assert.True(t, second.Matched)
	assert.False(t, second.Applied)

	stored := repo.payouts["X1"]
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	require.NotNil(t, stored.BankTxID)
	assert.Equal(t, "T1", *stored.BankTxID)
	assert.Len(t, repo.callbacks, 2)
	notifier.AssertExpectations(t)
}

func TestReceive_LaterFailureOverwritesCompleted(t *testing.T) {
	repo := seededRepo("X1", domain.StatusCompleted)
	svc := NewWebhookService(repo, nil, WebhookConfig{}, discardLogger())

	result, err := svc.Receive(context.Background(), []byte(`{"ext_id":"X1","status":"failed","error":"reversed"}`), "")

	require.NoError(t, err)
	assert.True(t, result.Applied)
	stored := repo.payouts["X1"]
	assert.Equal(t, domain.StatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Equal(t, "reversed", *stored.Error)
	require.NotNil(t, stored.BankTxID)
	assert.Equal(t, "T1", *stored.BankTxID, "missing tx id keeps the stored one")
}

func TestReceive_AlternateFieldNames(t *testing.T) {
	repo := seededRepo("X1", domain.StatusPending)
	svc := NewWebhookService(repo, nil, WebhookConfig{}, discardLogger())

	result, err := svc.Receive(context.Background(), []byte(`{"merchant_ext_id":"X1","result":"success","bank_tx_id":"B-77"}`), "")

	require.NoError(t, err)
	assert.Equal(t, "X1", result.ExternalID)
	assert.True(t, result.Applied)
	assert.Equal(t, domain.PayoutStatus("success"), repo.payouts["X1"].Status)
	assert.Equal(t, "B-77", *repo.payouts["X1"].BankTxID)
}

func TestReceive_EmptyStatusNotApplied(t *testing.T) {
	repo := seededRepo("X1", domain.StatusPending)
	svc := NewWebhookService(repo, nil, WebhookConfig{}, discardLogger())

	result, err := svc.Receive(context.Background(), []byte(`{"ext_id":"X1","tx_id":"T5"}`), "")

	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.False(t, result.Applied)
	assert.Equal(t, domain.StatusPending, repo.payouts["X1"].Status)
	assert.Nil(t, repo.payouts["X1"].BankTxID)
}

func TestReceive_Verification(t *testing.T) {
	body := []byte(`{"ext_id":"X1","status":"completed","tx_id":"T1"}`)
	goodSig := signer.SignBytes(body, callbackSecret)

	tests := []struct {
		name         string
		cfg          WebhookConfig
		signature    string
		wantVerified bool
		wantApplied  bool
	}{
		{name: "no secret accepts unsigned", cfg: WebhookConfig{}, signature: "", wantVerified: true, wantApplied: true},
		{name: "valid signature", cfg: WebhookConfig{Secret: callbackSecret}, signature: goodSig, wantVerified: true, wantApplied: true},
		{name: "missing signature", cfg: WebhookConfig{Secret: callbackSecret}, signature: "", wantVerified: false, wantApplied: false},
		{name: "wrong signature", cfg: WebhookConfig{Secret: callbackSecret}, signature: signer.SignBytes(body, "other"), wantVerified: false, wantApplied: false},
		{name: "unverified applied when allowed", cfg: WebhookConfig{Secret: callbackSecret, ApplyUnverified: true}, signature: "deadbeef", wantVerified: false, wantApplied: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seededRepo("X1", domain.StatusPending)
			svc := NewWebhookService(repo, nil, tt.cfg, discardLogger())

			result, err := svc.Receive(context.Background(), body, tt.signature)

			require.NoError(t, err)
			assert.True(t, result.Matched)
			assert.Equal(t, tt.wantVerified, result.Verified)
			assert.Equal(t, tt.wantApplied, result.Applied)
			require.Len(t, repo.callbacks, 1)
			assert.Equal(t, tt.wantVerified, repo.callbacks[0].Verified)
			if tt.wantApplied {
				assert.Equal(t, domain.StatusCompleted, repo.payouts["X1"].Status)
			} else {
				assert.Equal(t, domain.StatusPending, repo.payouts["X1"].Status)
			}
		})
	}
}

func TestReceive_RecordFailureIsReturned(t *testing.T) {
	repo := new(MockPayoutRepository)
	dbErr := errors.New("insert failed")
	repo.On("RecordCallback", mock.Anything, mock.Anything).Return(dbErr).Once()
	svc := NewWebhookService(repo, nil, WebhookConfig{}, discardLogger())

	_, err := svc.Receive(context.Background(), []byte(`{"ext_id":"X1","status":"completed"}`), "")

	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, domain.ErrMalformedCallback)
	repo.AssertNotCalled(t, "MergeResult", mock.Anything, mock.Anything, mock.Anything)
}
