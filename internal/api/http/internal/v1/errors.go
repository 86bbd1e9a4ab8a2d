package v1

// Errors
const (
	UnknownErrorCode    = 0
	UnknownErrorMessage = "unknown error"

	UserNotFoundCode         = 2001
	UserNotFoundMessage      = "user not found"
	AlreadyVerifiedCode      = 2002
	AlreadyVerifiedMessage   = "user is already verified"
	RateLimitedCode          = 2003
	RateLimitedMessage       = "too many verification attempts, try again later"
	SessionInProgressCode    = 2004
	SessionInProgressMessage = "a verification session is already in progress"
	SessionNotFoundCode      = 2005
	SessionNotFoundMessage   = "verification session not found"
	InvalidStateCode         = 2006
	InvalidStateMessage      = "session is not in a valid state for this operation"
	SessionExpiredCode       = 2007
	SessionExpiredMessage    = "verification session has expired"
	VideoTooLargeCode        = 2008
	VideoTooLargeMessage     = "video exceeds the maximum allowed size"
	BadMediaTypeCode         = 2009
	BadMediaTypeMessage      = "unsupported media type, expected a video"
	InvalidVerdictCode       = 2010
	InvalidVerdictMessage    = "verdict must be APPROVED or REJECTED"
)

type ErrorCode int
type ErrorMessage string

type ErrorStruct struct {
	ErrorCode    `json:"error_code"`
	ErrorMessage `json:"error_message"`
} // @name ErrorStruct

type ValidationErrorStruct struct {
	ErrorCode    int               `json:"error_code"`
	ErrorMessage string            `json:"error_message"`
	Errors       []ValidationError `json:"validation_errors"`
}

type ValidationError struct {
	FieldKey     string `json:"field_key"`
	ErrorMessage string `json:"error_message"`
}

func getErrorStruct(code ErrorCode) *ErrorStruct {
	errorStruct := &ErrorStruct{
		ErrorCode:    UnknownErrorCode,
		ErrorMessage: UnknownErrorMessage,
	}

	switch code {
	case UserNotFoundCode:
		errorStruct.ErrorCode = UserNotFoundCode
		errorStruct.ErrorMessage = UserNotFoundMessage
	case AlreadyVerifiedCode:
		errorStruct.ErrorCode = AlreadyVerifiedCode
		errorStruct.ErrorMessage = AlreadyVerifiedMessage
	case RateLimitedCode:
		errorStruct.ErrorCode = RateLimitedCode
		errorStruct.ErrorMessage = RateLimitedMessage
	case SessionInProgressCode:
		errorStruct.ErrorCode = SessionInProgressCode
		errorStruct.ErrorMessage = SessionInProgressMessage
	case SessionNotFoundCode:
		errorStruct.ErrorCode = SessionNotFoundCode
		errorStruct.ErrorMessage = SessionNotFoundMessage
	case InvalidStateCode:
		errorStruct.ErrorCode = InvalidStateCode
		errorStruct.ErrorMessage = InvalidStateMessage
	case SessionExpiredCode:
		errorStruct.ErrorCode = SessionExpiredCode
		errorStruct.ErrorMessage = SessionExpiredMessage
	case VideoTooLargeCode:
		errorStruct.ErrorCode = VideoTooLargeCode
		errorStruct.ErrorMessage = VideoTooLargeMessage
	case BadMediaTypeCode:
		errorStruct.ErrorCode = BadMediaTypeCode
		errorStruct.ErrorMessage = BadMediaTypeMessage
	case InvalidVerdictCode:
		errorStruct.ErrorCode = InvalidVerdictCode
		errorStruct.ErrorMessage = InvalidVerdictMessage
	}

	return errorStruct
}
