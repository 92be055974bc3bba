/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package itempool

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockItem implements ScrubbableItem
type mockItem struct {
	value int
	data  []int
}

func (i *mockItem) Scrub() {
	i.value = 0
	i.data = nil
}

func initItem() *mockItem {
	return &mockItem{
		data: make([]int, rand.Intn(100)),
	}
}

func TestItemPool(t *testing.T) {
	for _, num := range []int{10, 20, 30} {
		pool := New[*mockItem](100, initItem)
		pool.Warmup(num)

		for i := 0; i < num; i++ {
			item := pool.New()
			assert.Equal(t, 0, item.value)

			item.value = rand.Intn(100)

			pool.Recycle(item)

			assert.Equal(t, 0, item.value)
			assert.Nil(t, item.data)
		}
	}
}

func TestItemPoolAllocatesWhenDry(t *testing.T) {
	pool := New[*mockItem](1, initItem)

	// Nothing warmed; New must still hand out a fresh item.
	item := pool.New()
	assert.NotNil(t, item)
}
