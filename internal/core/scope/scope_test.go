package scope

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgErrors "buildbuddy-admin/pkg/errors"
)

func ptr(v int64) *int64 { return &v }

func members(ids ...int64) []Membership {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Membership, len(ids))
	for i, id := range ids {
		out[i] = Membership{OrgID: id, Role: "worker", JoinedAt: base.Add(time.Duration(i) * time.Hour)}
	}
	return out
}

func TestResolveActiveOrgSingleMembershipWins(t *testing.T) {
	for _, persisted := range []*int64{nil, ptr(1), ptr(99)} {
		org, ok := ResolveActiveOrg(members(1), persisted)
		assert.True(t, ok)
		assert.Equal(t, int64(1), org)
	}
}

func TestResolveActiveOrgDiscardsStaleChoice(t *testing.T) {
	org, ok := ResolveActiveOrg(members(10, 20), ptr(30))
	assert.True(t, ok)
	assert.Equal(t, int64(10), org)
}

func TestResolveActiveOrgKeepsValidChoice(t *testing.T) {
	org, ok := ResolveActiveOrg(members(10, 20), ptr(20))
	assert.True(t, ok)
	assert.Equal(t, int64(20), org)
}

func TestResolveActiveOrgDefaultsToFirst(t *testing.T) {
	org, ok := ResolveActiveOrg(members(10, 20, 30), nil)
	assert.True(t, ok)
	assert.Equal(t, int64(10), org)
}

func TestResolveActiveOrgNeedsSetup(t *testing.T) {
	org, ok := ResolveActiveOrg(nil, ptr(5))
	assert.False(t, ok)
	assert.Zero(t, org)
}

func TestClassifyCompany(t *testing.T) {
	assert.Equal(t, Internal, ClassifyCompany(7, ptr(7)))
	assert.Equal(t, Vendor, ClassifyCompany(7, ptr(8)))
	assert.Equal(t, Vendor, ClassifyCompany(7, nil))
}

type stubSource struct {
	list []Membership
	err  error
}

func (s stubSource) ListMemberships(context.Context, int64) ([]Membership, error) {
	return s.list, s.err
}

func TestResolverReadFailureIsRetryable(t *testing.T) {
	r := NewResolver(stubSource{err: errors.New("connection reset")}, zap.NewNop())

	_, err := r.Resolve(context.Background(), 1, "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgErrors.ErrScopeUnavailable)
	assert.True(t, pkgErrors.IsRetryable(err))
	assert.False(t, errors.Is(err, pkgErrors.ErrNeedsOrgSetup))
}

func TestResolverZeroMembershipsNeedsSetup(t *testing.T) {
	r := NewResolver(stubSource{}, zap.NewNop())

	s, err := r.Resolve(context.Background(), 1, "u@example.com", nil)
	require.NoError(t, err)
	assert.False(t, s.HasActive)

	_, err = s.RequireActive()
	assert.ErrorIs(t, err, pkgErrors.ErrNeedsOrgSetup)
}

func TestResolverRevalidatesEveryCall(t *testing.T) {
	src := &stubSource{list: members(1, 2)}
	r := NewResolver(src, zap.NewNop())

	s, err := r.Resolve(context.Background(), 9, "", ptr(2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.ActiveOrgID)

	// 成员关系被撤销后, 同一个保存的选择不再生效
	src.list = members(1, 3)
	s, err = r.Resolve(context.Background(), 9, "", ptr(2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.ActiveOrgID)
}

func TestScopeContextRoundTrip(t *testing.T) {
	s := &Scope{UserID: 3, Memberships: []Membership{{OrgID: 4, Role: "org_admin"}}, ActiveOrgID: 4, HasActive: true}
	ctx := WithScope(context.Background(), s)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, "org_admin", got.Role())
	assert.True(t, got.IsMember(4))
	assert.False(t, got.IsMember(5))
	assert.Equal(t, []int64{4}, got.OrgIDs())

	_, err := MustFromContext(context.Background())
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)
}
