package lock

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	t.Parallel()
	contractAddr := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	hash := common.HexToHash("0x01")

	tests := []struct {
		name    string
		outcome Outcome
		op      Operation
		want    string
	}{
		{
			name:    "deploy success",
			outcome: Success(hash, &contractAddr),
			op:      OpDeploy,
			want:    "Contract creation transaction has been processed and succeeded and contract address is: 0x5FbDB2315678afecb367f032d93F642f64180aa3",
		},
		{
			name:    "unlock success",
			outcome: Success(hash, nil),
			op:      OpUnlock,
			want:    "Unlock transaction has been processed and succeeded",
		},
		{
			name:    "withdraw success ignores a stray address",
			outcome: Success(hash, &contractAddr),
			op:      OpWithdraw,
			want:    "Withdraw transaction has been processed and succeeded",
		},
		{
			name:    "failure with reason",
			outcome: Failure(common.Hash{}, "revert You can't withdraw yet"),
			op:      OpWithdraw,
			want:    "Withdraw transaction has been processed but failed: revert You can't withdraw yet",
		},
		{
			name:    "failure without reason",
			outcome: Failure(hash, ""),
			op:      OpDeploy,
			want:    "Contract creation transaction has been processed but failed",
		},
		{
			name:    "submitted without a receipt",
			outcome: Submitted(hash),
			op:      OpDeploy,
			want:    "Contract creation transaction was submitted (tx 0x0000000000000000000000000000000000000000000000000000000000000001) but is not yet confirmed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Report(tt.outcome, tt.op))
			assert.Equal(t, tt.want, Report(tt.outcome, tt.op), "rendering is repeatable")
		})
	}
}

func TestOperation_Names(t *testing.T) {
	t.Parallel()
	for _, op := range []Operation{OpDeploy, OpUnlock, OpWithdraw} {
		parsed, err := ParseOperation(op.String())
		assert.NoError(t, err)
		assert.Equal(t, op, parsed)
	}
	_, err := ParseOperation("lock")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Operation(0).String())
}
