package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"curve-trader/internal/config"
	"curve-trader/internal/curve"
)

// rpcClient 为 Reader 依赖的最小 RPC 能力集合，*rpc.Client 满足该接口。
type rpcClient interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}

// Reader 从链上读取联合曲线储备、迁移后的池子储备、全局参数与代币余额。每次调用都重新读取，不做缓存。
type Reader struct {
	client     rpcClient
	programID  solana.PublicKey
	ammProgram solana.PublicKey
	commitment rpc.CommitmentType
	logger     *zap.Logger
}

// NewReader 基于配置创建链上读取器。
func NewReader(rpcCfg config.RPCConfig, curveCfg config.CurveConfig, logger *zap.Logger) (*Reader, error) {
	if rpcCfg.Endpoint == "" {
		return nil, errors.New("chain: rpc endpoint 不能为空")
	}
	reader, err := newReader(rpc.New(rpcCfg.Endpoint), curveCfg.ProgramID, rpc.CommitmentType(rpcCfg.Commitment), logger)
	if err != nil {
		return nil, err
	}
	if err := reader.setPoolProgram(curveCfg.AMMProgramID); err != nil {
		return nil, err
	}
	return reader, nil
}

func newReader(client rpcClient, programID string, commitment rpc.CommitmentType, logger *zap.Logger) (*Reader, error) {
	if client == nil {
		return nil, errors.New("chain: rpc client 不能为空")
	}
	program, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("chain: 程序地址无效 %q: %w", programID, err)
	}
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		client:     client,
		programID:  program,
		commitment: commitment,
		logger:     logger,
	}, nil
}

func (r *Reader) setPoolProgram(programID string) error {
	if programID == "" {
		r.ammProgram = solana.PublicKey{}
		return nil
	}
	program, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return fmt.Errorf("chain: 池子程序地址无效 %q: %w", programID, err)
	}
	r.ammProgram = program
	return nil
}

// ProgramID 返回曲线程序地址。
func (r *Reader) ProgramID() solana.PublicKey {
	return r.programID
}

// Reserves 读取 mint 对应的联合曲线储备。账户不存在时返回 curve.ErrNotFound。
// 返回的快照不含手续费，调用方需结合 Global 填充 FeeBasisPoints。
func (r *Reader) Reserves(ctx context.Context, mint solana.PublicKey) (curve.ReserveState, error) {
	addr, err := BondingCurveAddress(r.programID, mint)
	if err != nil {
		return curve.ReserveState{}, err
	}

	data, err := r.accountData(ctx, addr)
	if err != nil {
		return curve.ReserveState{}, fmt.Errorf("chain: 读取联合曲线 %s 失败: %w", mint, err)
	}

	state, err := decodeBondingCurve(data)
	if err != nil {
		return curve.ReserveState{}, err
	}

	r.logger.Debug("读取联合曲线储备",
		zap.String("mint", mint.String()),
		zap.String("account", addr.String()),
		zap.Bool("complete", state.Complete),
	)
	return state, nil
}

// Global 读取程序全局参数。
func (r *Reader) Global(ctx context.Context) (curve.GlobalState, error) {
	addr, err := GlobalAddress(r.programID)
	if err != nil {
		return curve.GlobalState{}, err
	}

	data, err := r.accountData(ctx, addr)
	if err != nil {
		return curve.GlobalState{}, fmt.Errorf("chain: 读取全局账户失败: %w", err)
	}
	return decodeGlobal(data)
}

// TokenBalance 读取 owner 关联代币账户中的 mint 余额（最小单位）。
func (r *Reader) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (*big.Int, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("chain: 推导关联代币账户失败: %w", err)
	}

	res, err := r.client.GetTokenAccountBalance(ctx, ata, r.commitment)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("chain: 代币账户 %s 不存在: %w", ata, curve.ErrNotFound)
		}
		return nil, fmt.Errorf("chain: 查询代币余额失败: %w", err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("chain: 代币账户 %s 无余额数据: %w", ata, curve.ErrNotFound)
	}

	amount, ok := new(big.Int).SetString(res.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("chain: 余额格式无效 %q", res.Value.Amount)
	}
	return amount, nil
}

func (r *Reader) accountData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	res, err := r.client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: r.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, curve.ErrNotFound
		}
		return nil, err
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, curve.ErrNotFound
	}
	return res.Value.Data.GetBinary(), nil
}
