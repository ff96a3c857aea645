package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"bookmap/backend/internal/geo"
	apperrors "bookmap/backend/pkg/errors"
)

// geoTx is the set of round trips the resolver issues inside one transaction.
// Every method is a single query.
type geoTx interface {
	mergeCountry(ctx context.Context, name string) (Country, bool, error)
	lockIdentity(ctx context.Context, key string) error
	findRegion(ctx context.Context, name, countryUID string) (*Region, error)
	createRegion(ctx context.Context, name string) (Region, error)
	findCityByKey(ctx context.Context, key string) (*City, error)
	findCitiesUnder(ctx context.Context, name string, parent Node) ([]City, error)
	createCity(ctx context.Context, name string, coords *geo.Coordinates) (City, error)
	setCityCoordinates(ctx context.Context, uid string, coords geo.Coordinates) (City, error)
	parentOf(ctx context.Context, child Node) (*Node, error)
	createWithin(ctx context.Context, child, parent Node) error
	mergeAuthor(ctx context.Context, author Author) (Author, bool, error)
	birthCity(ctx context.Context, goodreadsID string) (*City, error)
	createBornIn(ctx context.Context, goodreadsID, cityUID string) error
	exists(ctx context.Context, pair geo.Pair, child, parent string) (bool, error)
	ancestor(ctx context.Context, goodreadsID string, kind geo.Kind) (*Node, error)
}

// txWork is a unit of work. It may run more than once (driver retries and
// conflict re-runs) so it must not leak state between attempts.
type txWork func(tx geoTx) (any, error)

// txRunner executes units of work against the store
type txRunner interface {
	write(ctx context.Context, work txWork) (any, error)
	read(ctx context.Context, work txWork) (any, error)
	// run executes a single auto-commit statement (schema management)
	run(ctx context.Context, statement string) error
}

// ============================================================================
// Neo4j implementation
// ============================================================================

type neo4jRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *neo4jRunner) sessionConfig(mode neo4j.AccessMode) neo4j.SessionConfig {
	return neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database}
}

func (r *neo4jRunner) write(ctx context.Context, work txWork) (any, error) {
	session := r.driver.NewSession(ctx, r.sessionConfig(neo4j.AccessModeWrite))
	defer session.Close(ctx)

	return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&cypherTx{tx: tx})
	})
}

func (r *neo4jRunner) read(ctx context.Context, work txWork) (any, error) {
	session := r.driver.NewSession(ctx, r.sessionConfig(neo4j.AccessModeRead))
	defer session.Close(ctx)

	return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&cypherTx{tx: tx})
	})
}

func (r *neo4jRunner) run(ctx context.Context, statement string) error {
	session := r.driver.NewSession(ctx, r.sessionConfig(neo4j.AccessModeWrite))
	defer session.Close(ctx)

	result, err := session.Run(ctx, statement, nil)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

// cypherTx issues the resolver's round trips on a managed transaction
type cypherTx struct {
	tx neo4j.ManagedTransaction
}

// single runs a query expected to return at most one record
func (c *cypherTx) single(ctx context.Context, query string, params map[string]interface{}) (*neo4j.Record, error) {
	result, err := c.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if !result.Next(ctx) {
		return nil, result.Err()
	}
	return result.Record(), nil
}

func (c *cypherTx) mergeCountry(ctx context.Context, name string) (Country, bool, error) {
	record, err := c.single(ctx, queryMergeCountry, map[string]interface{}{
		"name": name,
		"uid":  uuid.New().String(),
	})
	if err != nil {
		return Country{}, false, fmt.Errorf("failed to merge country %q: %w", name, err)
	}
	if record == nil {
		return Country{}, false, fmt.Errorf("failed to merge country %q: no record returned", name)
	}
	return countryFromMap(getMapFromRecord(record, "country")), getBoolFromRecord(record, "created"), nil
}

func (c *cypherTx) lockIdentity(ctx context.Context, key string) error {
	result, err := c.tx.Run(ctx, queryLockIdentity, map[string]interface{}{"key": key})
	if err != nil {
		return fmt.Errorf("failed to lock identity %q: %w", key, err)
	}
	_, err = result.Consume(ctx)
	return err
}

func (c *cypherTx) findRegion(ctx context.Context, name, countryUID string) (*Region, error) {
	record, err := c.single(ctx, queryFindRegion, map[string]interface{}{
		"name":       name,
		"countryUID": countryUID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find region %q: %w", name, err)
	}
	if record == nil {
		return nil, nil
	}
	region := regionFromMap(getMapFromRecord(record, "region"))
	return &region, nil
}

func (c *cypherTx) createRegion(ctx context.Context, name string) (Region, error) {
	record, err := c.single(ctx, queryCreateRegion, map[string]interface{}{
		"name": name,
		"uid":  uuid.New().String(),
	})
	if err != nil {
		return Region{}, fmt.Errorf("failed to create region %q: %w", name, err)
	}
	if record == nil {
		return Region{}, fmt.Errorf("failed to create region %q: no record returned", name)
	}
	return regionFromMap(getMapFromRecord(record, "region")), nil
}

func (c *cypherTx) findCityByKey(ctx context.Context, key string) (*City, error) {
	record, err := c.single(ctx, queryFindCityByKey, map[string]interface{}{"key": key})
	if err != nil {
		return nil, fmt.Errorf("failed to find city at %q: %w", key, err)
	}
	if record == nil {
		return nil, nil
	}
	city := cityFromMap(getMapFromRecord(record, "city"))
	return &city, nil
}

func (c *cypherTx) findCitiesUnder(ctx context.Context, name string, parent Node) ([]City, error) {
	query, ok := cityUnderQueries[parent.Kind]
	if !ok {
		return nil, fmt.Errorf("a city cannot be placed under a %s", parent.Kind)
	}
	result, err := c.tx.Run(ctx, query, map[string]interface{}{
		"name":      name,
		"parentUID": parent.UID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find city %q under %s: %w", name, parent.Kind, err)
	}
	var cities []City
	for result.Next(ctx) {
		cities = append(cities, cityFromMap(getMapFromRecord(result.Record(), "city")))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cities: %w", err)
	}
	return cities, nil
}

func coordinateParams(params map[string]interface{}, coords *geo.Coordinates) map[string]interface{} {
	params["latitude"] = nil
	params["longitude"] = nil
	params["key"] = nil
	params["geohash"] = nil
	params["cell"] = nil
	if coords != nil {
		params["latitude"] = coords.Latitude
		params["longitude"] = coords.Longitude
		params["key"] = coords.Key()
		params["geohash"] = coords.Geohash()
		params["cell"] = coords.CellToken()
	}
	return params
}

func (c *cypherTx) createCity(ctx context.Context, name string, coords *geo.Coordinates) (City, error) {
	params := coordinateParams(map[string]interface{}{
		"name": name,
		"uid":  uuid.New().String(),
	}, coords)
	record, err := c.single(ctx, queryCreateCity, params)
	if err != nil {
		return City{}, fmt.Errorf("failed to create city %q: %w", name, err)
	}
	if record == nil {
		return City{}, fmt.Errorf("failed to create city %q: no record returned", name)
	}
	return cityFromMap(getMapFromRecord(record, "city")), nil
}

func (c *cypherTx) setCityCoordinates(ctx context.Context, uid string, coords geo.Coordinates) (City, error) {
	params := coordinateParams(map[string]interface{}{"uid": uid}, &coords)
	record, err := c.single(ctx, querySetCityCoordinates, params)
	if err != nil {
		return City{}, fmt.Errorf("failed to set coordinates on city %s: %w", uid, err)
	}
	if record == nil {
		return City{}, apperrors.NewInconsistency(uid, "city already carries a coordinate key")
	}
	return cityFromMap(getMapFromRecord(record, "city")), nil
}

func (c *cypherTx) parentOf(ctx context.Context, child Node) (*Node, error) {
	query, ok := parentQueries[child.Kind]
	if !ok {
		return nil, fmt.Errorf("a %s has no parent", child.Kind)
	}
	record, err := c.single(ctx, query, map[string]interface{}{"uid": child.UID})
	if err != nil {
		return nil, fmt.Errorf("failed to read parent of %s %s: %w", child.Kind, child.UID, err)
	}
	if record == nil {
		return nil, nil
	}
	parent, ok := nodeFromMap(getMapFromRecord(record, "parent"))
	if !ok {
		return nil, apperrors.NewInconsistency(child.UID, "WITHIN edge points at a non-geographic node")
	}
	return &parent, nil
}

func (c *cypherTx) createWithin(ctx context.Context, child, parent Node) error {
	pair, ok := geo.PairFor(child.Kind, parent.Kind)
	if !ok {
		return fmt.Errorf("a %s cannot be placed within a %s", child.Kind, parent.Kind)
	}
	record, err := c.single(ctx, linkQueries[pair], map[string]interface{}{
		"childUID":  child.UID,
		"parentUID": parent.UID,
	})
	if err != nil {
		return fmt.Errorf("failed to link %s: %w", pair, err)
	}
	if record == nil || getInt64FromRecord(record, "linked") != 1 {
		return apperrors.NewInconsistency(child.UID, fmt.Sprintf("%s link matched no nodes", pair))
	}
	return nil
}

func (c *cypherTx) mergeAuthor(ctx context.Context, author Author) (Author, bool, error) {
	result, err := c.tx.Run(ctx, queryMergeAuthor, map[string]interface{}{
		"goodreadsID": author.GoodreadsID,
		"name":        author.Name,
		"link":        nullableString(author.GoodreadsLink),
	})
	if err != nil {
		return Author{}, false, fmt.Errorf("failed to merge author %s: %w", author.GoodreadsID, err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return Author{}, false, fmt.Errorf("failed to merge author %s: %w", author.GoodreadsID, err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return Author{}, false, fmt.Errorf("failed to read merge summary: %w", err)
	}
	return authorFromMap(getMapFromRecord(record, "author")), summary.Counters().NodesCreated() > 0, nil
}

func (c *cypherTx) birthCity(ctx context.Context, goodreadsID string) (*City, error) {
	record, err := c.single(ctx, queryBirthCity, map[string]interface{}{"goodreadsID": goodreadsID})
	if err != nil {
		return nil, fmt.Errorf("failed to read birth city of %s: %w", goodreadsID, err)
	}
	if record == nil {
		return nil, nil
	}
	city := cityFromMap(getMapFromRecord(record, "city"))
	return &city, nil
}

func (c *cypherTx) createBornIn(ctx context.Context, goodreadsID, cityUID string) error {
	record, err := c.single(ctx, queryCreateBornIn, map[string]interface{}{
		"goodreadsID": goodreadsID,
		"cityUID":     cityUID,
	})
	if err != nil {
		return fmt.Errorf("failed to link author %s to city: %w", goodreadsID, err)
	}
	if record == nil || getInt64FromRecord(record, "linked") != 1 {
		return apperrors.NewInconsistency(cityUID, "BORN_IN link matched no nodes")
	}
	return nil
}

func (c *cypherTx) exists(ctx context.Context, pair geo.Pair, child, parent string) (bool, error) {
	query, ok := existsQueries[pair]
	if !ok {
		return false, fmt.Errorf("unknown hierarchy pair %s", pair)
	}
	record, err := c.single(ctx, query, map[string]interface{}{
		"child":  child,
		"parent": parent,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", pair, err)
	}
	return record != nil && getBoolFromRecord(record, "found"), nil
}

func (c *cypherTx) ancestor(ctx context.Context, goodreadsID string, kind geo.Kind) (*Node, error) {
	query, ok := ancestorQueries[kind]
	if !ok {
		return nil, fmt.Errorf("no ancestor query for %s", kind)
	}
	record, err := c.single(ctx, query, map[string]interface{}{"goodreadsID": goodreadsID})
	if err != nil {
		return nil, fmt.Errorf("failed to walk ancestors of %s: %w", goodreadsID, err)
	}
	if record == nil {
		return nil, nil
	}
	node, ok := nodeFromMap(getMapFromRecord(record, "node"))
	if !ok {
		return nil, nil
	}
	return &node, nil
}
