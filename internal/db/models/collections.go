// Package models - collections.go enumerates the tenant-scoped record tables
// that the deletion orchestrator fans out across. The full table schema lives
// in the migrations; the orchestrator only needs the table identities and
// their parent/child relationships, which are expressed by the deletion
// sequence in the tenancy package.
package models

// Collection identifies one tenant-scoped record table.
type Collection string

const (
	CollectionDocumentComments   Collection = "document_comments"
	CollectionApprovalHistory    Collection = "approval_history"
	CollectionDocuments          Collection = "documents"
	CollectionAssets             Collection = "assets"
	CollectionFloors             Collection = "floors"
	CollectionBuildings          Collection = "buildings"
	CollectionSites              Collection = "sites"
	CollectionCustomers          Collection = "customers"
	CollectionVendors            Collection = "vendors"
	CollectionEmailNotifications Collection = "email_notifications"
	CollectionNotifications      Collection = "notifications"
	CollectionSettings           Collection = "settings"
	CollectionUsers              Collection = "users"
	CollectionRoles              Collection = "roles"
	CollectionAuditLogs          Collection = "audit_logs"
)
