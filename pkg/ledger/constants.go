package ledger

const (
	operationDeposit          = "deposit"
	operationWithdraw         = "withdraw"
	operationTransfer         = "transfer"
	operationRegisterCustomer = "register_customer"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	defaultQueryLimit = 10
	minQueryLimit     = 1
	maxQueryLimit     = 100

	transferOutDescriptionFormat = "Transfer to customer %s"
	transferInDescriptionFormat  = "Transfer from customer %s"
)
