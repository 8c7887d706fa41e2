package config

import "slices"

// Merge overlays layer onto base and returns the result. Non-empty
// strings, non-zero numbers and non-empty lists in layer win; neither
// argument is mutated.
func Merge(base, layer Settings) Settings {
	merged := base

	if layer.BasePort != 0 {
		merged.BasePort = layer.BasePort
	}
	setString(&merged.Workspace.BranchFormat, layer.Workspace.BranchFormat)

	im, lim := &merged.IssueManagement, layer.IssueManagement
	setString(&im.Provider, lim.Provider)
	setString(&im.Linear.TeamID, lim.Linear.TeamID)
	setString(&im.Linear.APIToken, lim.Linear.APIToken)
	setString(&im.Jira.Host, lim.Jira.Host)
	setString(&im.Jira.Username, lim.Jira.Username)
	setString(&im.Jira.APIToken, lim.Jira.APIToken)
	setString(&im.Jira.ProjectKey, lim.Jira.ProjectKey)
	setString(&im.Jira.IssueType, lim.Jira.IssueType)
	setString(&im.Jira.SubtaskType, lim.Jira.SubtaskType)
	setList(&im.Jira.DoneStatuses, lim.Jira.DoneStatuses)
	setList(&im.Bitbucket.DoneStatuses, lim.Bitbucket.DoneStatuses)

	vc, lvc := &merged.VersionControl, layer.VersionControl
	setString(&vc.Provider, lvc.Provider)
	setString(&vc.Bitbucket.Username, lvc.Bitbucket.Username)
	setString(&vc.Bitbucket.AppPassword, lvc.Bitbucket.AppPassword)
	setString(&vc.Bitbucket.Workspace, lvc.Bitbucket.Workspace)
	setString(&vc.Bitbucket.RepoSlug, lvc.Bitbucket.RepoSlug)

	setString(&merged.UI.Theme, layer.UI.Theme)
	if layer.UI.Nerdfont {
		merged.UI.Nerdfont = true
	}

	return merged
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// setList replaces rather than appends: a layer listing done statuses
// means exactly those.
func setList(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = slices.Clone(v)
	}
}
