// Package domain defines the entity types shared by the agency operations
// platform: clients, team members, campaigns, tasks, approval requests and
// messages, plus the enums and change-sets that flow through the access
// control core.
//
// The package is intentionally free of behavior beyond small helpers; all
// visibility and permission logic lives in pkg/access.
package domain
