package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:browse",
		"attempt:create",
		"attempt:take",
		"attempt:view-own",
	},
	"teacher": {
		"quiz:browse",
		"quiz:create",
		"quiz:edit-own",
		"quiz:delete-own",
		"quiz:publish",
		"question:edit",
		"attempt:create",
		"attempt:take",
		"attempt:view-own",
		"attempt:view-all",
		"attempt:grade",
		"quiz:stats",
		"assets:upload",
		"users:import",
		"users:list",
	},
	"admin": {
		"*", // everything
	},
}
