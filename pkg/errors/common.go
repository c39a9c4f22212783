package errors

func IsToolchainFailure(err error) bool {
	return Is(err, DomainBuild, CodeToolchainFailure)
}

func IsNoArtifactProduced(err error) bool {
	return Is(err, DomainBuild, CodeNoArtifactProduced)
}

func IsIOFailure(err error) bool {
	return Is(err, DomainBuild, CodeIOFailure)
}

func IsInvalidOptions(err error) bool {
	return Is(err, DomainBuild, CodeInvalidOptions)
}

func IsConnectionFailure(err error) bool {
	return HasCode(err, CodeConnectionFailure)
}

func IsSubmissionRejected(err error) bool {
	return Is(err, DomainDeploy, CodeSubmissionRejected)
}

func IsQueryFailure(err error) bool {
	return Is(err, DomainStatus, CodeQueryFailure)
}
