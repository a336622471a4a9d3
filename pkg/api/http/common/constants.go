package common

const (
	// API_JOBS is used to get or create jobs
	API_JOBS = "/jobs"

	// API_JOB is used to get one job's status
	API_JOB = "/jobs/{id}"

	// API_JOB_RESULT is used to fetch a done job's artifact bytes
	API_JOB_RESULT = "/jobs/{id}/result"

	// API_JOB_CANCEL is used to request a job be dropped
	API_JOB_CANCEL = "/jobs/{id}/cancel"

	// API_SEARCH is used to search completed jobs by text
	API_SEARCH = "/search"

	// API_HEALTH is the liveness check
	API_HEALTH = "/healthz"
)
