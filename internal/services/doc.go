// Package services orchestrates load packages against a destination.
//
// LoadService drives one package through its folders:
//
//	new_jobs -> started_jobs -> completed_jobs | failed_jobs
//
// Jobs left in started_jobs by an earlier process are restored first.
// Jobs that end in the retry state are retried in-process with
// exponential backoff and, once the attempts are used up, re-queued into
// new_jobs with their retry count increased. The completion marker is
// written only when every job of the package completed.
package services
