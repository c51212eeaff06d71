// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package limitorder

import (
	"math/big"

	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"
	"github.com/zeebo/blake3"

	"github.com/luxfi/limitbook/contract"
)

// Event topics, derived from the event signatures.
var (
	TopicOrderPlaced   = eventTopic("OrderPlaced(bytes32,address,uint256)")
	TopicOrderCanceled = eventTopic("OrderCanceled(bytes32,address,uint256)")
	TopicOrderFilled   = eventTopic("OrderFilled(bytes32,uint256,uint256)")
	TopicOrderRedeemed = eventTopic("OrderRedeemed(bytes32,address,uint256,uint256)")
)

func eventTopic(signature string) common.Hash {
	h := blake3.New()
	h.Write([]byte(signature))

	var topic common.Hash
	copy(topic[:], h.Sum(nil))
	return topic
}

func emitEvent(state contract.StateDB, topics []common.Hash, words ...*big.Int) {
	data := make([]byte, 0, len(words)*common.HashLength)
	for _, w := range words {
		data = append(data, hashFromBig(w).Bytes()...)
	}
	state.AddLog(&ethtypes.Log{
		Address: BookAddr,
		Topics:  topics,
		Data:    data,
	})
}

func emitOrderPlaced(state contract.StateDB, orderID [32]byte, owner common.Address, volume *big.Int) {
	emitEvent(state, []common.Hash{TopicOrderPlaced, common.Hash(orderID), common.BytesToHash(owner.Bytes())}, volume)
}

func emitOrderCanceled(state contract.StateDB, orderID [32]byte, owner common.Address, volume *big.Int) {
	emitEvent(state, []common.Hash{TopicOrderCanceled, common.Hash(orderID), common.BytesToHash(owner.Bytes())}, volume)
}

func emitOrderFilled(state contract.StateDB, orderID [32]byte, volumeIn, amountOut *big.Int) {
	emitEvent(state, []common.Hash{TopicOrderFilled, common.Hash(orderID)}, volumeIn, amountOut)
}

func emitOrderRedeemed(state contract.StateDB, orderID [32]byte, owner common.Address, claims, amountOut *big.Int) {
	emitEvent(state, []common.Hash{TopicOrderRedeemed, common.Hash(orderID), common.BytesToHash(owner.Bytes())}, claims, amountOut)
}
