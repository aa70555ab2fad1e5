package blockchain

// loanContractABI describes the P2P lending contract. Amounts are wei,
// interest is whole percent, duration and timestamps are seconds.
const loanContractABI = `[
  {"type":"function","name":"createLoanRequest","stateMutability":"nonpayable",
   "inputs":[{"name":"amount","type":"uint256"},{"name":"interestRate","type":"uint256"},{"name":"duration","type":"uint256"}],
   "outputs":[{"name":"loanId","type":"uint256"}]},
  {"type":"function","name":"fundLoan","stateMutability":"payable",
   "inputs":[{"name":"loanId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"repayLoan","stateMutability":"payable",
   "inputs":[{"name":"loanId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"markDefault","stateMutability":"nonpayable",
   "inputs":[{"name":"loanId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getLoan","stateMutability":"view",
   "inputs":[{"name":"loanId","type":"uint256"}],
   "outputs":[
     {"name":"borrower","type":"address"},
     {"name":"lender","type":"address"},
     {"name":"amount","type":"uint256"},
     {"name":"interestRate","type":"uint256"},
     {"name":"duration","type":"uint256"},
     {"name":"createdAt","type":"uint256"},
     {"name":"dueDate","type":"uint256"},
     {"name":"funded","type":"bool"},
     {"name":"repaid","type":"bool"},
     {"name":"defaulted","type":"bool"}
   ]},
  {"type":"function","name":"loanCount","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getRepaymentAmount","stateMutability":"view",
   "inputs":[{"name":"loanId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getEscrowBalance","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"calculateMaxLoanAmount","stateMutability":"view",
   "inputs":[{"name":"creditScore","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"LoanCreated","anonymous":false,
   "inputs":[
     {"name":"loanId","type":"uint256","indexed":true},
     {"name":"borrower","type":"address","indexed":true},
     {"name":"amount","type":"uint256","indexed":false}
   ]}
]`

// Contract method names.
const (
	methodCreateLoan      = "createLoanRequest"
	methodFundLoan        = "fundLoan"
	methodRepayLoan       = "repayLoan"
	methodMarkDefault     = "markDefault"
	methodGetLoan         = "getLoan"
	methodLoanCount       = "loanCount"
	methodRepaymentAmount = "getRepaymentAmount"
	methodEscrowBalance   = "getEscrowBalance"
	methodMaxLoanAmount   = "calculateMaxLoanAmount"

	eventLoanCreated = "LoanCreated"
)

// Gas limits used for prepared transactions; the wallet re-estimates.
const (
	gasCreateLoan = 300000
	gasLoanAction = 200000
)
