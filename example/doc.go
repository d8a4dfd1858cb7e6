/*
Package example contains a runnable use of this library:

/server		backchannel authentication provider with in-memory clients and users,
			configured from a YAML file and backed by the memory, redis or sql store
*/
package example
