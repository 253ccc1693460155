package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"user": {
		"quiz:view",
		"quiz:feedback",
		"attempt:start",
		"attempt:submit",
		"attempt:view-own",
		"leaderboard:view",
	},
	"admin": {
		"*", // everything
	},
}
