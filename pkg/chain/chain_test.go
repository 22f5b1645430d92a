package chain

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad number " + s)
	}
	return v
}

func TestWithinTolerance(t *testing.T) {
	expected := wei("50000000000000000000") // 50 tokens

	tests := []struct {
		name   string
		actual *big.Int
		want   bool
	}{
		{"exact", wei("50000000000000000000"), true},
		{"within below", wei("45500000000000000000"), true},
		{"boundary below", wei("45000000000000000000"), true},
		{"boundary above", wei("55000000000000000000"), true},
		{"one wei under boundary", wei("44999999999999999999"), false},
		{"one wei over boundary", wei("55000000000000000001"), false},
		{"zero", big.NewInt(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinTolerance(tt.actual, expected, 10))
		})
	}
}

func TestSameAddress(t *testing.T) {
	addr := common.HexToAddress("0xCf2126b7e17b53D600323a7E37Be49AD15BcaF94")

	assert.True(t, SameAddress(&addr, "0xcf2126b7e17b53d600323a7e37be49ad15bcaf94"))
	assert.True(t, SameAddress(&addr, "0xCF2126B7E17B53D600323A7E37BE49AD15BCAF94"))
	assert.False(t, SameAddress(&addr, "0x0000000000000000000000000000000000000001"))
	assert.False(t, SameAddress(nil, "0xcf2126b7e17b53d600323a7e37be49ad15bcaf94"))
	assert.False(t, SameAddress(&addr, ""))
}

func TestConfirmations(t *testing.T) {
	assert.Equal(t, uint64(0), Confirmations(100, big.NewInt(100)))
	assert.Equal(t, uint64(1), Confirmations(101, big.NewInt(100)))
	assert.Equal(t, uint64(0), Confirmations(99, big.NewInt(100)))
	assert.Equal(t, uint64(0), Confirmations(99, nil))
}

func TestValidHash(t *testing.T) {
	assert.True(t, ValidHash("0x"+fmt.Sprintf("%064x", 42)))
	assert.False(t, ValidHash("0x1234"))
	assert.False(t, ValidHash(fmt.Sprintf("%064x", 42)))
	assert.False(t, ValidHash("0x"+fmt.Sprintf("%063x", 42)+"z"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ethereum.NotFound))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", ethereum.NotFound)))
	assert.False(t, IsNotFound(fmt.Errorf("dial tcp: refused")))
}
