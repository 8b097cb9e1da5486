package guard

import "github.com/hedeqiang/web3-ethereum-defi/internal/abiraw"

// Selectors are derived from canonical signature strings at startup,
// never hard-coded hex. The signature text is the bit-exact contract
// with the integrated protocols.
var (
	// ERC-20
	selTransfer = abiraw.Selector("transfer(address,uint256)")
	selApprove  = abiraw.Selector("approve(address,uint256)")

	// Uniswap v2 style constant-product routers
	selSwapExactTokensForTokens = abiraw.Selector(
		"swapExactTokensForTokens(uint256,uint256,address[],address,uint256)")
	selSwapExactTokensForTokensFoT = abiraw.Selector(
		"swapExactTokensForTokensSupportingFeeOnTransferTokens(uint256,uint256,address[],address,uint256)")

	// Uniswap v3 style routers. SwapRouter carries a deadline inside
	// the params tuple; SwapRouter02 dropped it, which shifts every
	// following field, so the two shapes decode separately.
	selExactInput = abiraw.Selector(
		"exactInput((bytes,address,uint256,uint256,uint256))")
	selExactInputNoDeadline = abiraw.Selector(
		"exactInput((bytes,address,uint256,uint256))")

	// GMX v2 exchange router
	selMulticall   = abiraw.Selector("multicall(bytes[])")
	selSendWnt     = abiraw.Selector("sendWnt(address,uint256)")
	selSendTokens  = abiraw.Selector("sendTokens(address,address,uint256)")
	selCreateOrder = abiraw.Selector(
		"createOrder(((address,address,address,address,address,address,address[])," +
			"(uint256,uint256,uint256,uint256,uint256,uint256,uint256,uint256)," +
			"uint8,uint8,bool,bool,bool,bytes32))")

	// Hyperliquid CoreWriter
	selSendRawAction = abiraw.Selector("sendRawAction(bytes)")

	// CoW protocol settlement
	selSetPreSignature = abiraw.Selector("setPreSignature(bytes,bool)")

	// ERC-4626 tokenized vaults
	selDeposit  = abiraw.Selector("deposit(uint256,address)")
	selMint     = abiraw.Selector("mint(uint256,address)")
	selWithdraw = abiraw.Selector("withdraw(uint256,address,address)")
	selRedeem   = abiraw.Selector("redeem(uint256,address,address)")
)
