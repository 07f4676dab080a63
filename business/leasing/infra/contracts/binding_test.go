package contracts

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	testFactoryAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testInstanceAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testUserAddr     = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

// newLeasingContractLog builds a log as the factory would emit it:
// topic0 = keccak256 of the event signature, topic1 = indexed user,
// data = ABI-encoded contractAddress.
func newLeasingContractLog(t *testing.T, user, deployed common.Address) types.Log {
	t.Helper()

	return types.Log{
		Address: testFactoryAddr,
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("NewLeasingContract(address,address)")),
			common.BytesToHash(common.LeftPadBytes(user.Bytes(), 32)),
		},
		Data: common.LeftPadBytes(deployed.Bytes(), 32),
	}
}

func stateChangedLog(t *testing.T, leaseID, newState int64) types.Log {
	t.Helper()

	return types.Log{
		Address: testInstanceAddr,
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("LeasingRequestStateChanged(uint256,uint256)")),
			common.BigToHash(big.NewInt(leaseID)),
		},
		Data: common.LeftPadBytes(big.NewInt(newState).Bytes(), 32),
	}
}

func TestFactory_CreatedEventFromReceipt(t *testing.T) {
	factory, err := NewFactory(testFactoryAddr, nil)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}

	deployed := common.HexToAddress("0x4444444444444444444444444444444444444444")
	log := newLeasingContractLog(t, testUserAddr, deployed)

	receipt := &types.Receipt{Logs: []*types.Log{&log}}

	ev, ok := factory.CreatedEventFromReceipt(receipt)
	if !ok {
		t.Fatal("expected the creation event to be found")
	}
	if ev.ContractAddress != deployed {
		t.Fatalf("ContractAddress = %s, want %s", ev.ContractAddress, deployed)
	}
	if ev.User != testUserAddr {
		t.Fatalf("User = %s, want %s", ev.User, testUserAddr)
	}
}

func TestFactory_CreatedEventFromReceipt_NoMatch(t *testing.T) {
	factory, err := NewFactory(testFactoryAddr, nil)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}

	// Receipt contains only an unrelated log.
	unrelated := types.Log{
		Address: testFactoryAddr,
		Topics:  []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))},
	}
	receipt := &types.Receipt{Logs: []*types.Log{&unrelated}}

	if _, ok := factory.CreatedEventFromReceipt(receipt); ok {
		t.Fatal("expected no creation event in a receipt with unrelated logs")
	}
}

func TestFactory_CreatedEventFromReceipt_EmptyLogs(t *testing.T) {
	factory, err := NewFactory(testFactoryAddr, nil)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}

	if _, ok := factory.CreatedEventFromReceipt(&types.Receipt{}); ok {
		t.Fatal("expected no creation event in an empty receipt")
	}
}

func TestInstance_DecodeStateChanged(t *testing.T) {
	instance, err := NewInstance(testInstanceAddr, nil)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}

	ev, ok := instance.DecodeStateChanged(stateChangedLog(t, 3, 1))
	if !ok {
		t.Fatal("expected the state-change log to decode")
	}
	if ev.LeaseID.Int64() != 3 {
		t.Fatalf("LeaseID = %s, want 3", ev.LeaseID)
	}
	if !ev.NewState.IsActive() {
		t.Fatalf("NewState = %v, want active", ev.NewState)
	}
}

func TestInstance_DecodeStateChanged_NonMatching(t *testing.T) {
	instance, err := NewInstance(testInstanceAddr, nil)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}

	log := newLeasingContractLog(t, testUserAddr, testInstanceAddr)
	if _, ok := instance.DecodeStateChanged(log); ok {
		t.Fatal("expected a factory log not to decode as a state change")
	}
}

func TestBinding_DecodeEvent_NoTopics(t *testing.T) {
	b, err := NewBinding(FactoryABI, testFactoryAddr, nil)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}

	if _, ok := b.DecodeEvent(EventNewLeasingContract, types.Log{}); ok {
		t.Fatal("expected a topicless log not to match")
	}
}

func TestFactory_BuildCreate(t *testing.T) {
	factory, err := NewFactory(testFactoryAddr, nil)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}

	tx, err := factory.BuildCreate(testUserAddr, "Crowdly Lease", "CLT")
	if err != nil {
		t.Fatalf("BuildCreate: %v", err)
	}

	if tx.To == nil || *tx.To != testFactoryAddr {
		t.Fatalf("To = %v, want %s", tx.To, testFactoryAddr)
	}
	if len(tx.Data) < 4 {
		t.Fatal("expected packed call data")
	}
	if tx.GasLimit != 0 || tx.GasPrice != nil {
		t.Fatal("gas fields must be left unset by the binding")
	}
}

func TestInstance_BuildInvest_CarriesValue(t *testing.T) {
	instance, err := NewInstance(testInstanceAddr, nil)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}

	value := big.NewInt(1_000_000_000_000_000_000)
	tx, err := instance.BuildInvest(testUserAddr, big.NewInt(1), value)
	if err != nil {
		t.Fatalf("BuildInvest: %v", err)
	}

	if tx.Value.Cmp(value) != 0 {
		t.Fatalf("Value = %s, want %s", tx.Value, value)
	}
	if tx.To == nil || *tx.To != testInstanceAddr {
		t.Fatalf("To = %v, want %s", tx.To, testInstanceAddr)
	}
}

func TestBinding_EventTopic(t *testing.T) {
	b, err := NewBinding(LeasingABI, testInstanceAddr, nil)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}

	topic, ok := b.EventTopic(EventLeasingRequestStateChanged)
	if !ok {
		t.Fatal("expected the event to be known")
	}

	want := crypto.Keccak256Hash([]byte("LeasingRequestStateChanged(uint256,uint256)"))
	if topic != want {
		t.Fatalf("topic = %s, want %s", topic, want)
	}

	if _, ok := b.EventTopic("NoSuchEvent"); ok {
		t.Fatal("expected unknown events to report ok=false")
	}
}
