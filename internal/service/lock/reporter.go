package lock

// Report renders an outcome as the status line shown to the user.
// Only a successful deployment mentions a contract address.
func Report(outcome Outcome, op Operation) string {
	if outcome.Pending {
		return op.Label() + " transaction was submitted (tx " + outcome.TxHash.Hex() + ") but is not yet confirmed"
	}
	if outcome.Succeeded {
		msg := op.Label() + " transaction has been processed and succeeded"
		if op == OpDeploy && outcome.ContractAddress != nil {
			msg += " and contract address is: " + outcome.ContractAddress.Hex()
		}
		return msg
	}

	msg := op.Label() + " transaction has been processed but failed"
	if outcome.Reason != "" {
		msg += ": " + outcome.Reason
	}
	return msg
}
