package internal

// PackageVersion is the version of the client library, sent in the User-Agent header.
const PackageVersion = "0.4.0"
