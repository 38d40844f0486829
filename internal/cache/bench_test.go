package cache

import (
	"strconv"
	"testing"
)

func BenchmarkCacheHit(b *testing.B) {
	c := New[string, int](1000)
	for i := 0; i < 100; i++ {
		_, _ = c.GetOrCreate(strconv.Itoa(i), value(i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.GetOrCreate("50", value(0))
	}
}

func BenchmarkCacheEvicting(b *testing.B) {
	c := New[string, int](64)
	keys := make([]string, 256)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.GetOrCreate(keys[i%256], value(i))
	}
}
