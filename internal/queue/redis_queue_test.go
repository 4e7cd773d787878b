package queue

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leozw/ws-billing-resolver/internal/core"
)

// sortedSet fakes the sorted set commands the queue issues.
type sortedSet struct {
	redis.Cmdable
	key     string
	members []redis.Z
}

func (s *sortedSet) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	s.key = key
	for _, m := range members {
		m.Member = string(m.Member.([]byte))
		s.members = append(s.members, m)
	}
	sort.SliceStable(s.members, func(i, j int) bool { return s.members[i].Score < s.members[j].Score })

	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (s *sortedSet) BZPopMin(ctx context.Context, _ time.Duration, keys ...string) *redis.ZWithKeyCmd {
	cmd := redis.NewZWithKeyCmd(ctx)
	if len(s.members) == 0 {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	head := s.members[0]
	s.members = s.members[1:]
	cmd.SetVal(&redis.ZWithKey{Z: head, Key: keys[0]})
	return cmd
}

func (s *sortedSet) ZCard(ctx context.Context, _ string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(s.members)))
	return cmd
}

func TestRedisQueue_PushPopByPriority(t *testing.T) {
	set := &sortedSet{}
	q := NewRedisQueue(set, "")
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &core.BillingJob{ID: "late", TenantID: "pb.lodhipur", Priority: 20}))
	require.NoError(t, q.Push(ctx, &core.BillingJob{ID: "early", TenantID: "pb.kharar", Priority: 10}))
	assert.Equal(t, "ws_billing_jobs", set.key)

	n, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	job, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "early", job.ID)
	assert.Equal(t, core.TenantID("pb.kharar"), job.TenantID)

	job, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "late", job.ID)
}

func TestRedisQueue_PopTimeout(t *testing.T) {
	q := NewRedisQueue(&sortedSet{}, "jobs")

	_, err := q.Pop(context.Background(), time.Millisecond)

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRedisQueue_ZeroPriorityUsesPushTime(t *testing.T) {
	set := &sortedSet{}
	q := NewRedisQueue(set, "jobs")
	q.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, q.Push(context.Background(), &core.BillingJob{ID: "j"}))

	require.Len(t, set.members, 1)
	assert.Equal(t, float64(1700000000), set.members[0].Score)
}
