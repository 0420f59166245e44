package quota

import (
	"context"
	"errors"
	"testing"

	entitlementdomain "github.com/smallbiznis/genstudio/internal/entitlement/domain"
	generationdomain "github.com/smallbiznis/genstudio/internal/generation/domain"
	usagedomain "github.com/smallbiznis/genstudio/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ledgerMock struct{ mock.Mock }

func (m *ledgerMock) CheckRemaining(ctx context.Context, callerID string) (bool, error) {
	args := m.Called(ctx, callerID)
	return args.Bool(0), args.Error(1)
}

func (m *ledgerMock) Increment(ctx context.Context, req usagedomain.IncrementRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *ledgerMock) Get(ctx context.Context, callerID string) (usagedomain.Summary, error) {
	args := m.Called(ctx, callerID)
	return args.Get(0).(usagedomain.Summary), args.Error(1)
}

type checkerMock struct{ mock.Mock }

func (m *checkerMock) IsActive(ctx context.Context, callerID string) (bool, error) {
	args := m.Called(ctx, callerID)
	return args.Bool(0), args.Error(1)
}

func (m *checkerMock) Invalidate(callerID string) { m.Called(callerID) }

func (m *checkerMock) Upsert(ctx context.Context, req entitlementdomain.UpsertRequest) (*entitlementdomain.Entitlement, error) {
	args := m.Called(ctx, req)
	ent, _ := args.Get(0).(*entitlementdomain.Entitlement)
	return ent, args.Error(1)
}

func newGate(l *ledgerMock, c *checkerMock) *Gate {
	return NewGate(Params{Log: zap.NewNop(), Ledger: l, Entitlement: c})
}

func TestCheck(t *testing.T) {
	cases := []struct {
		name      string
		remaining bool
		entitled  bool
		wantErr   error
	}{
		{name: "free tier left", remaining: true},
		{name: "paid with free tier left", remaining: true, entitled: true},
		{name: "paid and exhausted", entitled: true},
		{name: "exhausted", wantErr: ErrQuotaExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, c := &ledgerMock{}, &checkerMock{}
			l.On("CheckRemaining", mock.Anything, "u1").Return(tc.remaining, nil)
			c.On("IsActive", mock.Anything, "u1").Return(tc.entitled, nil)

			d, err := newGate(l, c).Check(context.Background(), "u1", generationdomain.MediaKindAudio)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.entitled, d.Entitled)
			assert.Equal(t, "u1", d.CallerID)
		})
	}
}

func TestCheck_CollaboratorErrorsPropagate(t *testing.T) {
	boom := errors.New("db down")

	l, c := &ledgerMock{}, &checkerMock{}
	l.On("CheckRemaining", mock.Anything, "u1").Return(false, boom)
	_, err := newGate(l, c).Check(context.Background(), "u1", generationdomain.MediaKindAudio)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrQuotaExceeded)

	l, c = &ledgerMock{}, &checkerMock{}
	l.On("CheckRemaining", mock.Anything, "u1").Return(true, nil)
	c.On("IsActive", mock.Anything, "u1").Return(false, boom)
	_, err = newGate(l, c).Check(context.Background(), "u1", generationdomain.MediaKindVideo)
	assert.ErrorIs(t, err, boom)
}

func TestCharge(t *testing.T) {
	req := generationdomain.Request{ID: "req-1", CallerID: "u1", MediaKind: generationdomain.MediaKindVideo}
	res := &generationdomain.Result{AssetURL: "https://x", MediaKind: generationdomain.MediaKindVideo, Model: "m"}

	l, c := &ledgerMock{}, &checkerMock{}
	l.On("Increment", mock.Anything, usagedomain.IncrementRequest{
		CallerID: "u1", IdempotencyKey: "req-1", MediaKind: "video", Model: "m",
		Metadata: map[string]any{"fallback": false},
	}).Return(nil).Once()
	require.NoError(t, newGate(l, c).Charge(context.Background(), Decision{CallerID: "u1"}, req, res))
	l.AssertExpectations(t)

	l = &ledgerMock{}
	require.NoError(t, newGate(l, c).Charge(context.Background(), Decision{CallerID: "u1", Entitled: true}, req, res))
	l.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything)

	require.NoError(t, newGate(l, c).Charge(context.Background(), Decision{CallerID: "u1"}, req, nil))
	l.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything)
}

func TestAccountAndRefresh(t *testing.T) {
	l, c := &ledgerMock{}, &checkerMock{}
	l.On("Get", mock.Anything, "u1").Return(usagedomain.Summary{CallerID: "u1", Count: 2, Limit: 5, Remaining: 3}, nil)
	c.On("IsActive", mock.Anything, "u1").Return(true, nil)
	c.On("Invalidate", "u1").Return().Once()

	g := newGate(l, c)
	acct, err := g.Account(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), acct.Remaining)
	assert.True(t, acct.Entitled)

	g.Refresh("u1")
	c.AssertExpectations(t)
}
