package constants

import "time"

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Context keys
const (
	ContextKeyUserID = "user_id"
	ContextKeyCaller = "caller"
	ContextKeyUser   = "current_user"
)

// Password rules
const (
	MinPasswordLength  = 8
	TempPasswordLength = 10
	BcryptCost         = 12
)

// OTP
const (
	OTPLength          = 6
	OTPExpiry          = 10 * time.Minute
	OTPVerifiedGrace   = 5 * time.Minute
	GenericOTPResponse = "If the email exists, an OTP will be sent."
)

// Worklogs
const (
	MinWorklogHours      = 0.25
	MaxWorklogHours      = 24.0
	DailyHoursThreshold  = 8.0
	WorklogDeleteWindow  = 24 * time.Hour
	MinWorklogDescLength = 3
	MaxWorklogDescLength = 500
)

// Tasks
const (
	TaskNumberPrefixLength = 3
)

// Notifications
const (
	NotificationTTL = 30 * 24 * time.Hour
)
