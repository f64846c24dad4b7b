/*
Package session serializes access to conversation threads.

Concurrent turns on the same thread are applied one at a time, locally through
reference-counted mutexes and, when configured, across replicas through a
ports.DistributedLocker.
*/
package session
