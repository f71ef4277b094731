package sqlinline

const QSelectUserPreferences = `--sql 15ae5b26-7e0f-4fb9-a55a-b924767f3913
select profile
from user_preferences
where user_id = $1::text;
`

const QUpsertUserPreferences = `--sql 5ba0352c-5cfc-44ee-b3af-a2b51107aeae
insert into user_preferences (user_id, profile, created_at, updated_at)
values ($1::text, $2::jsonb, now(), now())
on conflict (user_id) do update set
    profile = excluded.profile,
    updated_at = now();
`
