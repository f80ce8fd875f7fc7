// Package loadpackage reads and updates load packages on local disk.
//
// A load package is the unit of work produced upstream: a directory named
// by its load id holding the schema and the staged job files, sorted into
// folders by lifecycle:
//
//	<load_id>/
//	    schema.json
//	    new_jobs/        files waiting to be transferred
//	    started_jobs/    files whose transfer began in some process
//	    completed_jobs/  transferred files
//	    failed_jobs/     files that failed permanently
//	    followup_jobs/   reference jobs for a downstream loader
//
// Moving a file between folders is a rename, so a crash leaves every job in
// exactly one folder.
package loadpackage
