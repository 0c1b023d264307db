package payloadstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"wealth/internal/payloadstore"
	"wealth/internal/payloadstore/storetest"
	"wealth/pkg/testutil"
)

func TestMemoryStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) payloadstore.Store {
		return payloadstore.NewMemoryStore()
	})
}

type MemoryStoreSuite struct {
	suite.Suite
	store *payloadstore.MemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = payloadstore.NewMemoryStore()
}

func (s *MemoryStoreSuite) TestCopiesOnPut() {
	ctx := context.Background()
	value := []byte("original")
	s.Require().NoError(s.store.Put(ctx, "k", value))

	value[0] = 'X'

	got, err := s.store.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal("original", string(got))
}

func (s *MemoryStoreSuite) TestCopiesOnGet() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "k", []byte("original")))

	got, err := s.store.Get(ctx, "k")
	s.Require().NoError(err)
	got[0] = 'X'

	again, err := s.store.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal("original", string(again))
}

func (s *MemoryStoreSuite) TestConcurrentReadersOnSameKey() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "shared", []byte("payload")))

	result := testutil.RunConcurrent(50, func(idx int) error {
		if idx%5 == 0 {
			_, err := s.store.Get(ctx, fmt.Sprintf("absent-%d", idx))
			return err
		}
		_, err := s.store.Get(ctx, "shared")
		return err
	})

	s.Equal(int32(40), result.Successes)
	s.Equal(int32(10), result.NotFounds)
	s.Equal(int32(0), result.Errors)
	s.Equal(1, s.store.Len())
}
