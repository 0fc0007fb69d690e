package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// balanceOfSelector ERC-20 balanceOf(address) 的函数选择器
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// BalanceReader 读取链上 ERC-20 余额（USDT 抵押品）。
// 只读调用，不发交易，不需要私钥。
type BalanceReader struct {
	client   *ethclient.Client
	token    common.Address
	decimals int
}

// NewBalanceReader 连接 RPC 节点并绑定代币合约
func NewBalanceReader(rpcURL, tokenAddress string, decimals int) (*BalanceReader, error) {
	if !common.IsHexAddress(tokenAddress) {
		return nil, errors.Errorf("chain: 代币地址非法: %s", tokenAddress)
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "chain: 连接 RPC 失败")
	}
	if decimals <= 0 {
		decimals = 6 // USDT
	}
	return &BalanceReader{
		client:   client,
		token:    common.HexToAddress(tokenAddress),
		decimals: decimals,
	}, nil
}

// Close 断开 RPC 连接
func (r *BalanceReader) Close() {
	if r != nil && r.client != nil {
		r.client.Close()
	}
}

// BalanceOf 查询地址的代币余额（按 decimals 换算成浮点）
func (r *BalanceReader) BalanceOf(ctx context.Context, owner string) (float64, error) {
	if !common.IsHexAddress(owner) {
		return 0, errors.Errorf("chain: 账户地址非法: %s", owner)
	}

	data := BalanceOfCalldata(common.HexToAddress(owner))
	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.token, Data: data}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "chain: balanceOf 调用失败")
	}

	raw := new(big.Int).SetBytes(out)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(r.decimals)), nil))
	balance, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), scale).Float64()
	return balance, nil
}

// BalanceOfCalldata 构造 balanceOf(address) 的调用数据
func BalanceOfCalldata(owner common.Address) []byte {
	data := make([]byte, 0, 4+32)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)
	return data
}
