package contracts

// FactoryABI is the ABI for the CrowdLeasingFactory contract.
// Only includes the members this client consumes.
const FactoryABI = `[
	{
		"inputs": [
			{"internalType": "string", "name": "name", "type": "string"},
			{"internalType": "string", "name": "symbol", "type": "string"}
		],
		"name": "createCrowdLeasingContract",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getTotalContracts",
		"outputs": [
			{"internalType": "uint256", "name": "", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "index", "type": "uint256"}
		],
		"name": "getContractByIndex",
		"outputs": [
			{"internalType": "address", "name": "", "type": "address"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "leaseId", "type": "uint256"}
		],
		"name": "leasingContracts",
		"outputs": [
			{"internalType": "address", "name": "", "type": "address"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "user", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "contractAddress", "type": "address"}
		],
		"name": "NewLeasingContract",
		"type": "event"
	}
]`

// LeasingABI is the ABI for a CrowdLeasingContract instance.
// Only includes the members this client consumes.
const LeasingABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "uint256", "name": "duration", "type": "uint256"},
			{"internalType": "uint256", "name": "fundingPeriod", "type": "uint256"},
			{"internalType": "uint256", "name": "tokenPrice", "type": "uint256"}
		],
		"name": "createLeasingRequest",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "leaseId", "type": "uint256"}
		],
		"name": "getStatus",
		"outputs": [
			{"internalType": "uint8", "name": "", "type": "uint8"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "leaseId", "type": "uint256"}
		],
		"name": "getRemainingAmount",
		"outputs": [
			{"internalType": "uint256", "name": "", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "leaseId", "type": "uint256"}
		],
		"name": "investInLeasing",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "uint256", "name": "leaseId", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "newState", "type": "uint256"}
		],
		"name": "LeasingRequestStateChanged",
		"type": "event"
	}
]`
