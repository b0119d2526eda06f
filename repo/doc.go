// Package repo implements the content store as JSON documents committed
// through a repository hosting API, without a local working tree.
//
// A Provider abstracts the hosting service's file operations; GitHub and
// GitLab backends are included. The Store maps each content item to one
// .json file, and every write becomes a commit on the configured branch.
package repo
