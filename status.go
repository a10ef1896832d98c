package ftp

// FTP reply codes used by the engine. RFC 959 unless noted otherwise.
// The first digit classifies the reply: 1xx preliminary, 2xx success,
// 3xx intermediate, 4xx transient failure, 5xx permanent failure.
const (
	StatusRestartMarker = 110
	StatusReadyMinute   = 120
	StatusAlreadyOpen   = 125
	StatusAboutToSend   = 150

	StatusCommandOK             = 200
	StatusCommandNotImplemented = 202
	StatusSystem                = 211
	StatusFile                  = 213
	StatusName                  = 215
	StatusReady                 = 220
	StatusClosing               = 221
	StatusDataConnectionOpen    = 225
	StatusClosingDataConnection = 226
	StatusPassiveMode           = 227
	StatusExtendedPassiveMode   = 229 // RFC 2428
	StatusLoggedIn              = 230
	StatusAuthOK                = 234 // RFC 4217
	StatusRequestedFileActionOK = 250
	StatusPathCreated           = 257

	StatusUserOK             = 331
	StatusLoginNeedAccount   = 332
	StatusRequestFilePending = 350

	StatusNotAvailable             = 421
	StatusCannotOpenDataConnection = 425
	StatusTransferAborted          = 426
	StatusInvalidCredentials       = 430
	StatusFileActionIgnored        = 450

	StatusBadCommand      = 500
	StatusBadArguments    = 501
	StatusNotImplemented  = 502
	StatusBadSequence     = 503
	StatusNotLoggedIn     = 530
	StatusFileUnavailable = 550
	StatusExceededStorage = 552
	StatusBadFilename     = 553
)
