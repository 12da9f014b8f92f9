package constants

// ChargeState is the canonical state for rows in charges.
type ChargeState string

// Stable values (store these exact strings in DB).
const (
	ChargePending    ChargeState = "PENDING"     // no payments applied
	ChargePartial    ChargeState = "PARTIAL"     // paid something, below target
	ChargePaid       ChargeState = "PAID"        // paid at or above target
	ChargeWrittenOff ChargeState = "WRITTEN_OFF" // terminal, set manually elsewhere
)

// ChargeStates lists every stored charge state.
var ChargeStates = []string{
	string(ChargePending),
	string(ChargePartial),
	string(ChargePaid),
	string(ChargeWrittenOff),
}

// ContractStatus is the canonical status for rows in contracts.
type ContractStatus string

const (
	ContractDraft      ContractStatus = "DRAFT"
	ContractSigned     ContractStatus = "SIGNED"
	ContractActive     ContractStatus = "ACTIVE"
	ContractTerminated ContractStatus = "TERMINATED"
	ContractRescinded  ContractStatus = "RESCINDED"
)

// ContractStatuses lists every stored contract status.
var ContractStatuses = []string{
	string(ContractDraft),
	string(ContractSigned),
	string(ContractActive),
	string(ContractTerminated),
	string(ContractRescinded),
}

// ImportStatus is the lifecycle of an import job.
type ImportStatus string

const (
	ImportRunning  ImportStatus = "RUNNING"
	ImportImported ImportStatus = "IMPORTED"
	ImportFailed   ImportStatus = "FAILED"
)

var ImportStatuses = []string{
	string(ImportRunning),
	string(ImportImported),
	string(ImportFailed),
}
