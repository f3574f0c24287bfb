package chain

// contractABI is the consumed surface of the deployed RealEstateTokenization
// contract. The contract itself is a black box; only these entry points are
// called.
const contractABI = `[
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"isKycVerified","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOfBatch","stateMutability":"view","inputs":[{"name":"accounts","type":"address[]"},{"name":"ids","type":"uint256[]"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"approveUser","stateMutability":"nonpayable","inputs":[{"name":"user","type":"address"}],"outputs":[]},
	{"type":"function","name":"mintShares","stateMutability":"nonpayable","inputs":[{"name":"receiver","type":"address"},{"name":"propertyId","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"pricePaid","type":"uint256"}],"outputs":[]}
]`
