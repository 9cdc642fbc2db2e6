package membership

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type checkerMock struct {
	mock.Mock
}

func (m *checkerMock) MemberStatus(ctx context.Context, channel string, userID int64) (Status, error) {
	args := m.Called(ctx, channel, userID)
	return args.Get(0).(Status), args.Error(1)
}

func TestIsMemberAllJoined(t *testing.T) {
	c := new(checkerMock)
	c.On("MemberStatus", mock.Anything, "@alpha", int64(1)).Return(StatusMember, nil)
	c.On("MemberStatus", mock.Anything, "@beta", int64(1)).Return(StatusMember, nil)

	svc := New(c, []string{"@alpha", "@beta"})
	ok, missing := svc.IsMember(context.Background(), 1)
	assert.True(t, ok)
	assert.Empty(t, missing)
	c.AssertExpectations(t)
}

func TestIsMemberStopsAtFirstMissing(t *testing.T) {
	c := new(checkerMock)
	c.On("MemberStatus", mock.Anything, "@alpha", int64(1)).Return(StatusLeft, nil)

	svc := New(c, []string{"@alpha", "@beta"})
	ok, missing := svc.IsMember(context.Background(), 1)
	assert.False(t, ok)
	assert.Equal(t, "@alpha", missing)
	c.AssertNotCalled(t, "MemberStatus", mock.Anything, "@beta", int64(1))
}

func TestIsMemberKickedDenied(t *testing.T) {
	c := new(checkerMock)
	c.On("MemberStatus", mock.Anything, "@alpha", int64(1)).Return(StatusRemoved, nil)

	svc := New(c, []string{"@alpha"})
	ok, missing := svc.IsMember(context.Background(), 1)
	assert.False(t, ok)
	assert.Equal(t, "@alpha", missing)
}

func TestIsMemberFailsClosedOnProviderError(t *testing.T) {
	c := new(checkerMock)
	c.On("MemberStatus", mock.Anything, "@alpha", int64(1)).
		Return(StatusUnknown, errors.New("api unavailable"))

	svc := New(c, []string{"@alpha"})
	ok, missing := svc.IsMember(context.Background(), 1)
	assert.False(t, ok, "provider error denies access")
	assert.Equal(t, "@alpha", missing)
}

func TestIsMemberNoChannelsConfigured(t *testing.T) {
	svc := New(new(checkerMock), nil)
	ok, missing := svc.IsMember(context.Background(), 1)
	assert.True(t, ok)
	assert.Empty(t, missing)
}
