package mint

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a structured notification emitted after a successful state
// transition. Sinks decide how to fan it out.
type Event struct {
	Type       string
	Attributes map[string]string
}

// Emitter receives engine events. Implementations must not call back into
// the engine.
type Emitter interface {
	Emit(Event)
}

const (
	TypeDeposit  = "mint.deposit"
	TypeWithdraw = "mint.withdraw"
	TypeMint     = "mint.mint"
	TypeRepay    = "mint.repay"
)

func positionEvent(evtType string, account, token common.Address, amount *big.Int) Event {
	return Event{
		Type: evtType,
		Attributes: map[string]string{
			"account": account.Hex(),
			"token":   token.Hex(),
			"amount":  amount.String(),
		},
	}
}

func depositEvent(account, token common.Address, amount *big.Int) Event {
	return positionEvent(TypeDeposit, account, token, amount)
}

func withdrawEvent(account, token common.Address, amount *big.Int) Event {
	return positionEvent(TypeWithdraw, account, token, amount)
}

func mintEvent(account, token common.Address, amount, fee *big.Int) Event {
	evt := positionEvent(TypeMint, account, token, amount)
	evt.Attributes["fee"] = fee.String()
	return evt
}

func repayEvent(account, token common.Address, amount *big.Int) Event {
	return positionEvent(TypeRepay, account, token, amount)
}
