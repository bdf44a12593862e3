package models

type UserRole string

const (
	UserRoleAdmin  UserRole = "A"
	UserRoleMember UserRole = "U"
)

type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "PROCESSING"
	DocumentStatusCompleted  DocumentStatus = "COMPLETED"
	DocumentStatusFailed     DocumentStatus = "FAILED"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired  SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

type EventAction string

const (
	EventActionCreate EventAction = "C"
	EventActionUpdate EventAction = "U"
	EventActionDelete EventAction = "D"
)

type EventReferenceType string

const (
	EventReferenceDocument EventReferenceType = "DOC"
	EventReferenceOrder    EventReferenceType = "ORD"
	EventReferenceUser     EventReferenceType = "USR"
)

// Outbox publish lifecycle (publish happens after commit via dispatcher).
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
