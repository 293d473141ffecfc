package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"learner": {
		"rte:call",
		"attempt:view-own",
		"progress:view-own",
	},
	"teacher": {
		"rte:call",
		"sco:create",
		"sco:view",
		"attempt:view-own",
		"attempt:view-all",
		"progress:view-own",
	},
	"admin": {
		"*", // everything
	},
}
