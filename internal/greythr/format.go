package greythr

import (
	"fmt"
	"strings"
)

// FormatBalance renders a leave balance as Slack-flavoured markdown.
func FormatBalance(balance *LeaveBalance) string {
	if balance == nil || len(balance.List) == 0 {
		return "No leave balance information available."
	}

	var b strings.Builder
	b.WriteString("*Leave Balance*\n")
	for _, entry := range balance.List {
		name := entry.LeaveType.Description
		if name == "" {
			name = "Leave"
		}
		fmt.Fprintf(&b, "• *%s*: %s available (granted %s, availed %s)\n",
			name, trimFloat(entry.Balance), trimFloat(entry.Grant), trimFloat(entry.Availed))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTransactions renders leave transactions as Slack-flavoured markdown.
func FormatTransactions(txns *LeaveTransactions) string {
	if txns == nil || len(txns.List) == 0 {
		return "No leave transactions in this period."
	}

	var b strings.Builder
	b.WriteString("*Leave Transactions*\n")
	for _, txn := range txns.List {
		name := txn.Type.Description
		if name == "" {
			name = "Leave"
		}
		fmt.Fprintf(&b, "• *%s*: %s to %s (%s days)", name, txn.FromDate, txn.ToDate, trimFloat(txn.Days))
		if txn.Reason != "" {
			fmt.Fprintf(&b, " - %s", txn.Reason)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// trimFloat drops trailing zeros so whole-day counts read as "2" not "2.00".
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
