package sqlinline

const QInsertFeedbackEvent = `--sql 53c52b8d-840f-44b8-8cd3-8b9cdc8e0e33
insert into feedback_events (
    id,
    user_id,
    recommendation_id,
    is_liked,
    reason,
    outfit_items,
    weather,
    analysis,
    created_at
)
values (
    gen_random_uuid(),
    $1::text,
    $2::text,
    $3::boolean,
    nullif($4::text, ''),
    $5::jsonb,
    $6::jsonb,
    $7::jsonb,
    $8::timestamptz
)
returning id::text;
`
