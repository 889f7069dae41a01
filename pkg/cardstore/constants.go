package cardstore

const (
	// On-disk record geometry. The identifier is stored as plain text so an
	// operator can match a file to its account; only the fixed binary block
	// is obfuscated.
	identifierLength  = 36
	recordBlockLength = 16
	recordTerminator  = '\n'

	// KeyMaterial geometry. The key is raw bytes, generated once per
	// installation; losing it makes every record unreadable.
	keyLength = 16

	// Password range enforced at creation time only.
	passwordMinimum uint64 = 1_000_000
	passwordMaximum uint64 = 9_999_999

	// Cache geometry. Buckets double when the next insert would push live
	// entries past three quarters of the bucket count.
	initialBucketCount = 16
	hashSeed           = 5381

	cardDirectoryName = "Card"
	cardFileExtension = ".card"
	keyFileName       = "system.key"

	operationDeposit  = "deposit"
	operationWithdraw = "withdraw"
	operationTransfer = "transfer"
	operationClose    = "close"
	operationCreate   = "create"
	operationPush     = "push"
	operationPull     = "pull"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)
