// Package journal records completed loads in PostgreSQL.
//
// The journal is optional. When configured, the load service writes one
// row per completed load package after the completion marker is in place,
// and skips packages that are already recorded. Connections authenticate
// with a password, an AWS RDS IAM token or an Azure Entra ID token.
package journal
