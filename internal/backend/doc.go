// Package backend gathers context from the MGM business backend.
//
// Every chat request fans out one fetch per configured module. Each fetch
// ends in a Fragment: module data, "Not available" for a non-2xx answer or
// "Error fetching data" for a transport failure. Fragments are merged in
// enumeration order into the block appended to the system instruction.
package backend
